package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chatbot-api/internal/application/rag"
	"ai-chatbot-api/internal/config"
	"ai-chatbot-api/internal/domain/entity"
	"ai-chatbot-api/internal/domain/repository"
	"ai-chatbot-api/pkg/errors"
)

type fakeSessionRepo struct {
	store map[string]*entity.ChatSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{store: make(map[string]*entity.ChatSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.ChatSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.store[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*entity.ChatSession, error) {
	return r.store[id], nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *entity.ChatSession) error {
	r.store[s.ID] = s
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id string) error {
	delete(r.store, id)
	return nil
}

func (r *fakeSessionRepo) ListByUser(ctx context.Context, userID string, p repository.Pagination) (*repository.PagedResult[*entity.ChatSession], error) {
	var items []*entity.ChatSession
	for _, s := range r.store {
		if s.UserID == userID {
			items = append(items, s)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeSessionRepo) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return int64(len(r.store)), nil
}

func (r *fakeSessionRepo) DeleteEmpty(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeMessageRepo struct {
	msgs []*entity.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *entity.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *fakeMessageRepo) ListBySession(ctx context.Context, sessionID string, p repository.Pagination) (*repository.PagedResult[*entity.Message], error) {
	var items []*entity.Message
	for _, m := range r.msgs {
		if m.SessionID == sessionID {
			items = append(items, m)
		}
	}
	return repository.NewPagedResult(items, int64(len(items)), p), nil
}

func (r *fakeMessageRepo) ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*entity.Message, error) {
	var items []*entity.Message
	for _, m := range r.msgs {
		if m.SessionID == sessionID {
			items = append(items, m)
		}
	}
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (r *fakeMessageRepo) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	out, _ := r.ListBySession(ctx, sessionID, repository.NewPagination(1, 100))
	return out.Total, nil
}

func (r *fakeMessageRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeMessageRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	var kept []*entity.Message
	for _, m := range r.msgs {
		if m.SessionID != sessionID {
			kept = append(kept, m)
		}
	}
	r.msgs = kept
	return nil
}

type fakeTx struct{}

func (fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

type stubGenerator struct{ out string }

func (g stubGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	return g.out, nil
}

func (stubGenerator) Model() string { return "stub" }

type stubIndex struct{ docs []rag.ScoredDocument }

func (stubIndex) EnsureIndex(ctx context.Context, dim int) error            { return nil }
func (stubIndex) Upsert(ctx context.Context, docs []rag.IndexedDocument) error { return nil }
func (stubIndex) Delete(ctx context.Context, ids []string) error            { return nil }
func (i stubIndex) Query(ctx context.Context, vector []float32, topK int) ([]rag.ScoredDocument, error) {
	return i.docs, nil
}

func newTestService(ragService *rag.Service) (*Service, *fakeSessionRepo, *fakeMessageRepo) {
	sessions := newFakeSessionRepo()
	messages := &fakeMessageRepo{}
	svc := NewService(sessions, messages, fakeTx{}, nil, ragService)
	return svc, sessions, messages
}

func newTestRAG(answer string, docs []rag.ScoredDocument) *rag.Service {
	return rag.NewService(context.Background(), stubEmbedder{}, stubGenerator{out: answer}, stubIndex{docs: docs}, &config.RAGConfig{
		Dimension:          2,
		TopK:               3,
		RelevanceThreshold: 0.7,
	})
}

func TestSessionTitle(t *testing.T) {
	assert.Equal(t, "New Chat", sessionTitle("  "))
	assert.Equal(t, "hello", sessionTitle("hello"))

	long := strings.Repeat("a", 80)
	got := sessionTitle(long)
	assert.Equal(t, strings.Repeat("a", 50)+"...", got)
}

func TestAsk_NewSession(t *testing.T) {
	ragSvc := newTestRAG("the answer", []rag.ScoredDocument{{ID: "1", Score: 0.9, Title: "t", Content: "c"}})
	svc, sessions, messages := newTestService(ragSvc)

	result, err := svc.Ask(context.Background(), "user-1", "", "what is the meaning of life?")
	require.NoError(t, err)

	require.NotNil(t, result.Session)
	assert.Equal(t, "what is the meaning of life?", result.Session.Title)
	assert.Len(t, sessions.store, 1)

	assert.Equal(t, "the answer", result.AssistantMessage.Content)
	assert.Equal(t, entity.RoleUser, result.UserMessage.Role)
	assert.Equal(t, entity.RoleAssistant, result.AssistantMessage.Role)
	assert.Len(t, messages.msgs, 2)
	assert.True(t, result.ContextUsed)

	var meta messageMetadata
	require.NoError(t, json.Unmarshal(result.AssistantMessage.Metadata, &meta))
	assert.Equal(t, 1, meta.RelevantDocsCount)
	assert.True(t, meta.ContextUsed)
	assert.GreaterOrEqual(t, meta.ProcessingTime, 0.0)
}

func TestAsk_ExistingSession(t *testing.T) {
	ragSvc := newTestRAG("answer", nil)
	svc, sessions, _ := newTestService(ragSvc)

	session := entity.NewChatSession("user-1", "existing")
	require.NoError(t, sessions.Create(context.Background(), session))

	result, err := svc.Ask(context.Background(), "user-1", session.ID, "follow up")
	require.NoError(t, err)
	assert.Equal(t, session.ID, result.Session.ID)
	assert.Equal(t, "existing", result.Session.Title)
}

func TestAsk_SessionNotFound(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Ask(context.Background(), "user-1", "missing", "hello")
	require.Error(t, err)
	assert.Equal(t, errors.CodeSessionNotFound, errors.AsAppError(err).Code)
}

func TestAsk_WrongOwner(t *testing.T) {
	svc, sessions, _ := newTestService(nil)

	session := entity.NewChatSession("user-1", "mine")
	require.NoError(t, sessions.Create(context.Background(), session))

	_, err := svc.Ask(context.Background(), "user-2", session.ID, "hello")
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.AsAppError(err).Code)
}

func TestAsk_RAGUnavailable(t *testing.T) {
	svc, _, _ := newTestService(nil)

	result, err := svc.Ask(context.Background(), "user-1", "", "hello")
	require.NoError(t, err)
	assert.Equal(t, unavailableResponse, result.AssistantMessage.Content)
	assert.False(t, result.ContextUsed)
	assert.Empty(t, result.RelevantDocuments)
}

func TestAsk_IndexDownStillAnswers(t *testing.T) {
	// 向量索引不可用但 LLM 在线：仍按空上下文生成回答，而不是兜底文案
	ragSvc := rag.NewService(context.Background(), stubEmbedder{}, stubGenerator{out: "general knowledge answer"}, nil, &config.RAGConfig{
		Dimension:          2,
		TopK:               3,
		RelevanceThreshold: 0.7,
	})
	require.True(t, ragSvc.Available())
	svc, _, _ := newTestService(ragSvc)

	result, err := svc.Ask(context.Background(), "user-1", "", "what is Go?")
	require.NoError(t, err)
	assert.Equal(t, "general knowledge answer", result.AssistantMessage.Content)
	assert.False(t, result.ContextUsed)
	assert.Empty(t, result.RelevantDocuments)
}

func TestAsk_EmptyMessage(t *testing.T) {
	svc, _, _ := newTestService(nil)

	_, err := svc.Ask(context.Background(), "user-1", "", "   ")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)
}

func TestDeleteSession(t *testing.T) {
	svc, sessions, messages := newTestService(nil)

	session := entity.NewChatSession("user-1", "doomed")
	require.NoError(t, sessions.Create(context.Background(), session))
	require.NoError(t, messages.Create(context.Background(), entity.NewMessage(session.ID, entity.RoleUser, "hi", nil)))

	require.NoError(t, svc.DeleteSession(context.Background(), "user-1", session.ID))
	assert.Empty(t, sessions.store)
	assert.Empty(t, messages.msgs)
}

func TestRenameSession(t *testing.T) {
	svc, sessions, _ := newTestService(nil)

	session := entity.NewChatSession("user-1", "old title")
	require.NoError(t, sessions.Create(context.Background(), session))

	updated, err := svc.RenameSession(context.Background(), "user-1", session.ID, "new title")
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)
	assert.Equal(t, "new title", sessions.store[session.ID].Title)

	_, err = svc.RenameSession(context.Background(), "user-1", session.ID, "  ")
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidParam, errors.AsAppError(err).Code)

	_, err = svc.RenameSession(context.Background(), "user-2", session.ID, "stolen")
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.AsAppError(err).Code)
}

func TestGetOverview(t *testing.T) {
	svc, sessions, messages := newTestService(nil)

	session := entity.NewChatSession("user-1", "mine")
	require.NoError(t, sessions.Create(context.Background(), session))
	for i := 0; i < 12; i++ {
		require.NoError(t, messages.Create(context.Background(), entity.NewMessage(session.ID, entity.RoleUser, "hi", nil)))
	}

	overview, err := svc.GetOverview(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.TotalSessions)
	require.Len(t, overview.Sessions, 1)
	assert.Len(t, overview.RecentMessages, overviewMessageLimit)

	empty, err := svc.GetOverview(context.Background(), "user-2")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalSessions)
	assert.Empty(t, empty.RecentMessages)
}

func TestHistory_OwnershipEnforced(t *testing.T) {
	svc, sessions, messages := newTestService(nil)

	session := entity.NewChatSession("user-1", "mine")
	require.NoError(t, sessions.Create(context.Background(), session))
	require.NoError(t, messages.Create(context.Background(), entity.NewMessage(session.ID, entity.RoleUser, "hi", nil)))

	out, err := svc.History(context.Background(), "user-1", session.ID, repository.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)

	_, err = svc.History(context.Background(), "user-2", session.ID, repository.NewPagination(1, 20))
	require.Error(t, err)
	assert.Equal(t, errors.CodeForbidden, errors.AsAppError(err).Code)
}
