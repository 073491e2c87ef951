package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/spf13/cobra"
)

func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <document-id>",
		Short: "Ingest a document into the vector index",
		Long:  "Load, split and embed an uploaded document, printing progress. Already ingested documents are skipped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			return renderProgress(os.Stdout, a.documents.IngestWithProgress(ctx, args[0]))
		},
	}

	return cmd
}

// renderProgress prints one line per stage change and returns the error of
// a terminal error event.
func renderProgress(w io.Writer, events <-chan domain.IngestProgress) error {
	var last domain.IngestStage
	for p := range events {
		switch p.Stage {
		case domain.IngestStageError:
			return fmt.Errorf("ingestion failed: %w", p.Err)
		case domain.IngestStageDone:
			if p.Skipped {
				fmt.Fprintf(w, "Document %s already ingested\n", p.DocumentID)
			} else {
				fmt.Fprintf(w, "Document %s ingested (%d chunks)\n", p.DocumentID, p.Total)
			}
		case domain.IngestStageEmbedding, domain.IngestStageStoring:
			if p.Total > 0 {
				fmt.Fprintf(w, "  %s %d/%d\n", p.Stage, p.Completed, p.Total)
			}
		default:
			if p.Stage != last {
				fmt.Fprintf(w, "  %s\n", p.Stage)
			}
		}
		last = p.Stage
	}
	return nil
}

func AskCmd() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "ask <document-id> <question>",
		Short: "Ask a question about a document",
		Long:  "Answer a question on behalf of the document's owner and record it in the conversation history",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			outputFormat, _ := cmd.Flags().GetString("output")

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.docRepo.GetByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to load document: %w", err)
			}

			result, err := a.chat.Ask(ctx, service.AskInput{
				OwnerID:        doc.OwnerID,
				DocumentID:     doc.ID,
				ConversationID: conversationID,
				Question:       args[1],
			})
			if err != nil {
				return err
			}

			if outputFormat == "json" {
				sources := make([]map[string]interface{}, len(result.Answer.Sources))
				for i, s := range result.Answer.Sources {
					sources[i] = map[string]interface{}{"seq": s.Seq, "score": s.Score, "text": s.Text}
				}
				data := map[string]interface{}{
					"answer":          result.Answer.Text,
					"query":           result.Answer.Query,
					"conversation_id": result.ConversationID,
					"sources":         sources,
				}
				jsonBytes, _ := json.MarshalIndent(data, "", "  ")
				fmt.Println(string(jsonBytes))
				return nil
			}

			fmt.Println(result.Answer.Text)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID (default conversation when empty)")

	return cmd
}

func DeleteNamespaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-namespace <document-id>",
		Short: "Delete a document's vectors",
		Long:  "Remove every vector stored for the document. Succeeds when the document was never ingested.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.documents.DeleteNamespace(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete namespace: %w", err)
			}
			fmt.Printf("Namespace %s deleted\n", args[0])
			return nil
		},
	}
}
