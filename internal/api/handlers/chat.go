package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/cjgv1809/Chat-with-PDF/internal/api"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/cjgv1809/Chat-with-PDF/internal/rag"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
)

type ChatService interface {
	Ask(ctx context.Context, input service.AskInput) (*service.AskResult, error)
	History(ctx context.Context, ownerID, documentID, conversationID, cursor string, limit int) (*pagination.PageResult[domain.ChatTurn], error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type SourceResponse struct {
	Seq   int     `json:"seq"`
	Text  string  `json:"text"`
	Score float32 `json:"score"`
}

type AskResponse struct {
	Answer         string           `json:"answer"`
	Query          string           `json:"query"`
	ConversationID string           `json:"conversation_id"`
	Sources        []SourceResponse `json:"sources"`
	Question       *TurnResponse    `json:"question_turn"`
	AnswerTurn     *TurnResponse    `json:"answer_turn"`
}

type TurnResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Message        string `json:"message"`
	CreatedAt      string `json:"created_at"`
}

type HistoryResponse struct {
	Items   []*TurnResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

func turnToResponse(t *domain.ChatTurn) *TurnResponse {
	return &TurnResponse{
		ID:             t.ID,
		ConversationID: t.ConversationID,
		Role:           string(t.Role),
		Message:        t.Message,
		CreatedAt:      t.CreatedAt.Format("2006-01-02T15:04:05.000Z"),
	}
}

func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := documentRequest(w, r)
	if !ok {
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.svc.Ask(r.Context(), service.AskInput{
		OwnerID:        userID,
		DocumentID:     id,
		ConversationID: req.ConversationID,
		Question:       req.Question,
	})
	if err != nil {
		handleAskError(w, err)
		return
	}

	sources := make([]SourceResponse, len(result.Answer.Sources))
	for i, s := range result.Answer.Sources {
		sources[i] = SourceResponse{Seq: s.Seq, Text: s.Text, Score: s.Score}
	}

	api.Success(w, http.StatusOK, AskResponse{
		Answer:         result.Answer.Text,
		Query:          result.Answer.Query,
		ConversationID: result.ConversationID,
		Sources:        sources,
		Question:       turnToResponse(result.Question),
		AnswerTurn:     turnToResponse(result.AnswerTurn),
	})
}

// handleAskError maps chain failures that carry no domain code: a history
// store failure is internal, any other stage means the model or the index is
// unreachable. The cause is logged, never sent to the client.
func handleAskError(w http.ResponseWriter, err error) {
	var stageErr *rag.StageError
	if !errors.As(err, &stageErr) || domain.ErrorCode(err) != "" || api.DomainErrorToHTTP(err) != http.StatusInternalServerError {
		api.HandleError(w, err)
		return
	}

	log.Printf("ask failed: %v", err)
	if stageErr.Stage == rag.StageHistory {
		api.JSON(w, http.StatusInternalServerError, api.ErrorResponse{
			Error: "failed to load conversation history",
			Code:  domain.ErrCodeInternalError,
		})
		return
	}
	api.JSON(w, http.StatusBadGateway, api.ErrorResponse{
		Error: fmt.Sprintf("%s stage failed: upstream service unavailable", stageErr.Stage),
		Code:  domain.ErrCodeUpstream,
	})
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := documentRequest(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	page, err := h.svc.History(r.Context(), userID, id, q.Get("conversation_id"), q.Get("cursor"), parseLimit(r))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*TurnResponse, len(page.Items))
	for i := range page.Items {
		items[i] = turnToResponse(&page.Items[i])
	}

	api.Success(w, http.StatusOK, HistoryResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}
