package admin

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/config"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/history"
	"github.com/cjgv1809/Chat-with-PDF/internal/loader"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/spf13/cobra"
)

const localOwner = "local"

func LocalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local <file> [question...]",
		Short: "Chat with a local file without a database",
		Long: "Ingest a local PDF or text file into an in-memory index and answer questions about it. " +
			"Questions are read from the arguments, or one per line from stdin when none are given.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadPipeline()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			pipe, err := newPipeline(cfg)
			if err != nil {
				return err
			}

			var questions iter.Seq[string]
			if len(args) > 1 {
				questions = func(yield func(string) bool) {
					for _, q := range args[1:] {
						if !yield(q) {
							return
						}
					}
				}
			} else {
				fmt.Fprintln(os.Stderr, "Ask a question (Ctrl-D to quit):")
				questions = lines(os.Stdin)
			}

			return runLocal(cmd.Context(), pipe, args[0], questions, os.Stdout)
		},
	}

	return cmd
}

// runLocal ingests path into an in-memory index and answers each question in
// one conversation, so follow-ups see the earlier turns.
func runLocal(ctx context.Context, pipe *pipeline, path string, questions iter.Seq[string], out io.Writer) error {

	text, err := loader.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(filepath.Base(path), localOwner, filepath.Base(path), "", "", int64(len(text)), now)
	doc.Status = domain.DocumentStatusUploaded

	docs := &localDocuments{
		doc:   doc,
		index: vectorindex.NewManager(vectorindex.NewMemoryIndex(pipe.embedder.Dimensions()), pipe.embedder),
		source: func(context.Context) (iter.Seq[domain.Chunk], error) {
			return pipe.splitter.Split(doc.ID, text), nil
		},
	}

	events := make(chan domain.IngestProgress, 16)
	go func() {
		defer close(events)
		_, _ = docs.ingest(ctx, func(p domain.IngestProgress) { events <- p })
	}()
	if err := renderProgress(out, events); err != nil {
		return err
	}

	turns := history.NewStore(history.NewMemoryRepository(), 0)
	chat := service.NewChatService(docs, pipe.chain(docs.index, turns), turns, nil)

	for q := range questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		result, err := chat.Ask(ctx, service.AskInput{
			OwnerID:    localOwner,
			DocumentID: doc.ID,
			Question:   q,
		})
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "> %s\n%s\n\n", strings.TrimSpace(q), result.Answer.Text)
	}
	return nil
}

// localDocuments serves a single in-memory document to the chat service.
type localDocuments struct {
	doc    *domain.Document
	index  *vectorindex.Manager
	source vectorindex.ChunkSource
}

func (l *localDocuments) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	if documentID != l.doc.ID || ownerID != l.doc.OwnerID {
		return nil, domain.ErrDocumentNotFound
	}
	return l.doc, nil
}

func (l *localDocuments) EnsureIngested(ctx context.Context, ownerID, documentID string) (*vectorindex.IngestResult, error) {
	if _, err := l.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	return l.ingest(ctx, nil)
}

func (l *localDocuments) ingest(ctx context.Context, progress func(domain.IngestProgress)) (*vectorindex.IngestResult, error) {
	var opts []vectorindex.IngestOption
	if progress != nil {
		opts = append(opts, vectorindex.WithProgress(progress))
	}
	_, result, err := l.index.EnsureIngested(ctx, l.doc.ID, l.source, opts...)
	return result, err
}

func lines(r io.Reader) iter.Seq[string] {
	return func(yield func(string) bool) {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}
}
