package services

import (
	"database/sql"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend guarda o estado em memória e implementa os stores que o
// RequestService consome, dispensando banco nos testes.
type fakeBackend struct {
	mu       sync.Mutex
	nextID   int64
	tx       *sql.Tx
	requests map[int64]*models.Request
	items    map[int64]*models.RequestItem
	fields   map[int64]*models.RequestItemField
	messages map[int64]*models.Message

	lastFilter     *models.RequestItemListFilter
	lastFinalizeTx *sql.Tx
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		tx:       &sql.Tx{},
		requests: make(map[int64]*models.Request),
		items:    make(map[int64]*models.RequestItem),
		fields:   make(map[int64]*models.RequestItemField),
		messages: make(map[int64]*models.Message),
	}
}

func (b *fakeBackend) id() int64 {
	b.nextID++
	return b.nextID
}

func (b *fakeBackend) WithTransaction(fn func(*sql.Tx) error) error {
	return fn(b.tx)
}

// --- RequestStore ---

func (b *fakeBackend) CreateTx(tx *sql.Tx, req *models.Request) (*models.Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req.ID = b.id()
	req.CreatedAt = time.Now()
	cp := *req
	b.requests[req.ID] = &cp
	return req, nil
}

func (b *fakeBackend) GetByID(id int64) (*models.Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.requests[id]
	if !ok || req.IsDeleted {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (b *fakeBackend) GetByMessageID(messageID int64) (*models.Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, req := range b.requests {
		if req.MessageID == messageID && !req.IsDeleted {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (b *fakeBackend) GetByMessageIDs(messageIDs []int64) (map[int64]*models.Request, error) {
	out := make(map[int64]*models.Request)
	for _, id := range messageIDs {
		if req, _ := b.GetByMessageID(id); req != nil {
			out[id] = req
		}
	}
	return out, nil
}

func (b *fakeBackend) Touch(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req, ok := b.requests[id]; ok {
		now := time.Now()
		req.UpdatedAt = &now
	}
	return nil
}

func (b *fakeBackend) SoftDeleteCascade(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if req, ok := b.requests[id]; ok {
		req.IsDeleted = true
	}
	for _, item := range b.items {
		if item.RequestID == id {
			item.IsDeleted = true
		}
	}
	return nil
}

// --- RequestItemStore (nomes distintos porque colidem com RequestStore) ---

type fakeItemStore struct{ b *fakeBackend }

func (s fakeItemStore) CreateTx(tx *sql.Tx, item *models.RequestItem) (*models.RequestItem, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	item.ID = s.b.id()
	item.CreatedAt = time.Now()
	cp := *item
	s.b.items[item.ID] = &cp
	return item, nil
}

func (s fakeItemStore) Create(item *models.RequestItem) (*models.RequestItem, error) {
	return s.CreateTx(nil, item)
}

func (s fakeItemStore) GetByID(id int64) (*models.RequestItem, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	item, ok := s.b.items[id]
	if !ok || item.IsDeleted {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (s fakeItemStore) ListViewsByRequestID(requestID int64) ([]models.RequestItemView, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	var views []models.RequestItemView
	for _, item := range s.b.items {
		if item.RequestID != requestID || item.IsDeleted {
			continue
		}
		views = append(views, models.RequestItemView{
			RequestItem: *item,
			RequestType: &models.TypeMini{
				ID: int64(item.RequestTypeID), TypeName: item.RequestTypeID.String(),
			},
			RequestStatus: &models.StatusMini{
				ID: int64(item.RequestStatusID), StatusName: item.RequestStatusID.String(),
			},
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

func (s fakeItemStore) UpdateTypeAndProduct(item *models.RequestItem) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	stored, ok := s.b.items[item.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.RequestTypeID = item.RequestTypeID
	stored.ProductID = item.ProductID
	return nil
}

func (s fakeItemStore) SetStatus(id int64, status models.RequestStatus) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	stored, ok := s.b.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	stored.RequestStatusID = status
	return nil
}

func (s fakeItemStore) SetProductAndStatusTx(tx *sql.Tx, id, productID int64, status models.RequestStatus) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	s.b.lastFinalizeTx = tx
	stored, ok := s.b.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	stored.ProductID = &productID
	stored.RequestStatusID = status
	return nil
}

func (s fakeItemStore) Touch(id int64) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if item, ok := s.b.items[id]; ok {
		now := time.Now()
		item.UpdatedAt = &now
	}
	return nil
}

func (s fakeItemStore) SoftDelete(id int64) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if item, ok := s.b.items[id]; ok {
		item.IsDeleted = true
	}
	return nil
}

func (s fakeItemStore) ListForPage(filter *models.RequestItemListFilter) ([]models.RequestItemListRow, int64, error) {
	s.b.mu.Lock()
	cp := *filter
	s.b.lastFilter = &cp
	s.b.mu.Unlock()

	var rows []models.RequestItemListRow
	for _, item := range s.b.items {
		if item.IsDeleted {
			continue
		}
		req := s.b.requests[item.RequestID]
		if filter.CreatedByUserID != nil && req.CreatedBy != *filter.CreatedByUserID {
			continue
		}
		if filter.StatusID != nil && int64(item.RequestStatusID) != *filter.StatusID {
			continue
		}
		rows = append(rows, models.RequestItemListRow{
			RequestID:        req.ID,
			RequestCreatedBy: req.CreatedBy,
			ItemID:           item.ID,
			RequestTypeID:    int64(item.RequestTypeID),
			RequestStatusID:  int64(item.RequestStatusID),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ItemID < rows[j].ItemID })
	return rows, int64(len(rows)), nil
}

// --- RequestItemFieldStore ---

type fakeFieldStore struct{ b *fakeBackend }

func (s fakeFieldStore) Create(field *models.RequestItemField) (*models.RequestItemField, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	field.ID = s.b.id()
	field.CreatedAt = time.Now()
	cp := *field
	s.b.fields[field.ID] = &cp
	return field, nil
}

func (s fakeFieldStore) CreateManyTx(tx *sql.Tx, itemID int64, payloads []models.RequestItemFieldPayload) ([]models.RequestItemField, error) {
	var out []models.RequestItemField
	for _, p := range payloads {
		field := &models.RequestItemField{
			RequestItemID: itemID,
			FieldTypeID:   p.FieldTypeID,
			FieldTag:      p.FieldTag,
			FieldValue:    p.FieldValue,
			FieldFlag:     p.FieldFlag,
		}
		if _, err := s.Create(field); err != nil {
			return nil, err
		}
		out = append(out, *field)
	}
	return out, nil
}

func (s fakeFieldStore) GetByID(id int64) (*models.RequestItemField, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	field, ok := s.b.fields[id]
	if !ok || field.IsDeleted {
		return nil, nil
	}
	cp := *field
	return &cp, nil
}

func (s fakeFieldStore) ListByItemID(itemID int64) ([]models.RequestItemField, error) {
	byItem, err := s.ListByItemIDs([]int64{itemID})
	if err != nil {
		return nil, err
	}
	return byItem[itemID], nil
}

func (s fakeFieldStore) ListByItemIDs(itemIDs []int64) (map[int64][]models.RequestItemField, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	wanted := make(map[int64]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	out := make(map[int64][]models.RequestItemField)
	for _, field := range s.b.fields {
		if field.IsDeleted || !wanted[field.RequestItemID] {
			continue
		}
		out[field.RequestItemID] = append(out[field.RequestItemID], *field)
	}
	for id := range out {
		fields := out[id]
		sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
		out[id] = fields
	}
	return out, nil
}

func (s fakeFieldStore) Update(field *models.RequestItemField) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	stored, ok := s.b.fields[field.ID]
	if !ok {
		return sql.ErrNoRows
	}
	stored.FieldValue = field.FieldValue
	stored.FieldFlag = field.FieldFlag
	return nil
}

func (s fakeFieldStore) SoftDelete(id int64) error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if field, ok := s.b.fields[id]; ok {
		field.IsDeleted = true
	}
	return nil
}

// --- MessageStore / ConversationStore ---

type fakeMessageStore struct{ b *fakeBackend }

func (s fakeMessageStore) GetByID(id int64) (*models.Message, error) {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	msg, ok := s.b.messages[id]
	if !ok || msg.IsDeleted {
		return nil, nil
	}
	cp := *msg
	return &cp, nil
}

type fakeConversationStore struct{}

func (fakeConversationStore) GetByID(id int64) (*models.Conversation, error) { return nil, nil }
func (fakeConversationStore) Touch(id int64) error                           { return nil }

// fakeMaterializer devolve um resultado fixo e registra a última chamada
type fakeMaterializer struct {
	mu     sync.Mutex
	result *models.MaterializeResult
	err    error
	calls  int
	tx     *sql.Tx
	fields []models.RequestItemField
}

func (m *fakeMaterializer) Materialize(tx *sql.Tx, item *models.RequestItem, fields []models.RequestItemField) (*models.MaterializeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.tx = tx
	m.fields = fields
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// recorder captura os eventos pós-commit (goroutines) com segurança
type recorder struct {
	mu        sync.Mutex
	finalized []models.ProductChangedEvent
}

func (r *recorder) EmitItemFinalized(ev models.ProductChangedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = append(r.finalized, ev)
}

func (r *recorder) finalizedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.finalized)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fixture struct {
	backend      *fakeBackend
	materializer *fakeMaterializer
	workflows    *recorder
	svc          *RequestService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := newFakeBackend()
	materializer := &fakeMaterializer{
		result: &models.MaterializeResult{ProductID: 42, Created: true, CodigoAtual: "PA-001"},
	}
	workflows := &recorder{}
	svc := NewRequestService(
		backend, backend, fakeItemStore{backend}, fakeFieldStore{backend},
		fakeMessageStore{backend}, fakeConversationStore{},
		materializer, nil, nil, workflows, testLogger(),
	)
	return &fixture{backend: backend, materializer: materializer, workflows: workflows, svc: svc}
}

// seedMessage registra uma mensagem enviada pelo usuário informado
func (f *fixture) seedMessage(senderID int64) *models.Message {
	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	msg := &models.Message{
		ID:             f.backend.id(),
		ConversationID: 1,
		SenderID:       senderID,
		MessageTypeID:  models.MessageTypeRequest,
		CreatedAt:      time.Now(),
	}
	f.backend.messages[msg.ID] = msg
	return msg
}

// seedItem registra requisição + item + campos direto no estado
func (f *fixture) seedItem(createdBy int64, reqType models.RequestType, status models.RequestStatus, fields ...models.RequestItemFieldPayload) *models.RequestItem {
	msg := f.seedMessage(createdBy)

	f.backend.mu.Lock()
	defer f.backend.mu.Unlock()
	req := &models.Request{
		ID:        f.backend.id(),
		MessageID: msg.ID,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	f.backend.requests[req.ID] = req

	item := &models.RequestItem{
		ID:              f.backend.id(),
		RequestID:       req.ID,
		RequestTypeID:   reqType,
		RequestStatusID: status,
		CreatedAt:       time.Now(),
	}
	f.backend.items[item.ID] = item

	for _, p := range fields {
		field := &models.RequestItemField{
			ID:            f.backend.id(),
			RequestItemID: item.ID,
			FieldTypeID:   p.FieldTypeID,
			FieldTag:      p.FieldTag,
			FieldValue:    p.FieldValue,
			FieldFlag:     p.FieldFlag,
			CreatedAt:     time.Now(),
		}
		f.backend.fields[field.ID] = field
	}
	return item
}

func strPtr(s string) *string { return &s }

var (
	admin     = models.Actor{UserID: 1, Role: models.RoleAdmin}
	analyst   = models.Actor{UserID: 2, Role: models.RoleAnalyst}
	submitter = models.Actor{UserID: 10, Role: models.RoleUser}
	stranger  = models.Actor{UserID: 11, Role: models.RoleUser}
)

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	msg := f.seedMessage(submitter.UserID)

	view, err := f.svc.Create(submitter, &models.CreateRequestRequest{
		MessageID: msg.ID,
		Items: []models.RequestItemPayload{
			{
				RequestTypeID: int64(models.TypeCreate),
				// status pedido pelo cliente é ignorado: item nasce CREATED
				RequestStatusID: int64(models.StatusFinalized),
				Fields: []models.RequestItemFieldPayload{
					{FieldTypeID: 1, FieldTag: "novo_codigo", FieldValue: strPtr("PA-001")},
					{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")},
				},
			},
		},
	})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	item := view.Items[0]
	assert.Equal(t, models.StatusCreated, item.RequestStatusID)
	assert.Equal(t, "CREATED", item.RequestStatus.StatusName)
	assert.Nil(t, item.ProductID)
	assert.Len(t, item.Fields, 2)
}

func TestCreateRequestValidations(t *testing.T) {
	f := newFixture(t)
	msg := f.seedMessage(submitter.UserID)

	item := models.RequestItemPayload{
		RequestTypeID:   int64(models.TypeCreate),
		RequestStatusID: int64(models.StatusCreated),
		Fields: []models.RequestItemFieldPayload{
			{FieldTypeID: 1, FieldTag: "novo_codigo", FieldValue: strPtr("PA-001")},
		},
	}

	_, err := f.svc.Create(submitter, &models.CreateRequestRequest{MessageID: 999, Items: []models.RequestItemPayload{item}})
	assert.True(t, models.IsNotFound(err))

	// só o remetente ou um revisor podem criar sobre a mensagem
	_, err = f.svc.Create(stranger, &models.CreateRequestRequest{MessageID: msg.ID, Items: []models.RequestItemPayload{item}})
	assert.True(t, models.IsForbidden(err))

	_, err = f.svc.Create(submitter, &models.CreateRequestRequest{MessageID: msg.ID})
	assert.True(t, models.IsConflict(err))

	noTag := item
	noTag.Fields = []models.RequestItemFieldPayload{{FieldTypeID: 1, FieldValue: strPtr("x")}}
	_, err = f.svc.Create(submitter, &models.CreateRequestRequest{MessageID: msg.ID, Items: []models.RequestItemPayload{noTag}})
	assert.True(t, models.IsConflict(err))

	_, err = f.svc.Create(submitter, &models.CreateRequestRequest{MessageID: msg.ID, Items: []models.RequestItemPayload{item}})
	require.NoError(t, err)

	// 1:1 com a mensagem
	_, err = f.svc.Create(analyst, &models.CreateRequestRequest{MessageID: msg.ID, Items: []models.RequestItemPayload{item}})
	assert.True(t, models.IsConflict(err))
}

func TestLockedItemsAreImmutable(t *testing.T) {
	for _, status := range []models.RequestStatus{models.StatusFinalized, models.StatusRejected} {
		t.Run(status.String(), func(t *testing.T) {
			f := newFixture(t)
			item := f.seedItem(submitter.UserID, models.TypeCreate, status,
				models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")})

			fields, err := fakeFieldStore{f.backend}.ListByItemID(item.ID)
			require.NoError(t, err)
			require.Len(t, fields, 1)
			fieldID := fields[0].ID

			typeUpdate := int64(models.TypeUpdate)
			mutations := map[string]func() error{
				"update item": func() error {
					_, err := f.svc.UpdateItem(admin, item.ID, &models.UpdateRequestItemRequest{RequestTypeID: &typeUpdate})
					return err
				},
				"delete item": func() error { return f.svc.DeleteItem(admin, item.ID) },
				"add field": func() error {
					_, err := f.svc.AddField(admin, item.ID, &models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "unidade"})
					return err
				},
				"update field": func() error {
					_, err := f.svc.UpdateField(admin, fieldID, &models.UpdateRequestItemFieldRequest{FieldValue: strPtr("Porca")})
					return err
				},
				"set flag": func() error {
					_, err := f.svc.SetFieldFlag(admin, fieldID, &models.SetFieldFlagRequest{FieldFlag: strPtr("REVIEW")})
					return err
				},
				"delete field": func() error { return f.svc.DeleteField(admin, fieldID) },
				"change status": func() error {
					_, err := f.svc.ChangeItemStatus(admin, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusInProgress)})
					return err
				},
				"resubmit": func() error {
					_, err := f.svc.ResubmitReturnedItem(submitter, item.ID)
					return err
				},
			}

			for name, mutate := range mutations {
				err := mutate()
				assert.Truef(t, models.IsConflict(err), "%s: esperava CONFLICT, veio %v", name, err)
			}

			// nada mudou no estado
			stored, err := fakeItemStore{f.backend}.GetByID(item.ID)
			require.NoError(t, err)
			assert.Equal(t, status, stored.RequestStatusID)
			assert.Equal(t, models.TypeCreate, stored.RequestTypeID)
		})
	}
}

func TestChangeItemStatus(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusCreated)

	// só revisores movem a máquina de estados
	_, err := f.svc.ChangeItemStatus(submitter, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusInProgress)})
	assert.True(t, models.IsForbidden(err))

	_, err = f.svc.ChangeItemStatus(analyst, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: 99})
	assert.True(t, models.IsConflict(err))

	_, err = f.svc.ChangeItemStatus(analyst, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusCreated)})
	assert.True(t, models.IsConflict(err))

	// FAILED não é um destino operado por revisores
	_, err = f.svc.ChangeItemStatus(analyst, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFailed)})
	assert.True(t, models.IsConflict(err))

	updated, err := f.svc.ChangeItemStatus(analyst, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusInProgress)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.RequestStatusID)

	// CREATED só via resubmissão
	_, err = f.svc.ChangeItemStatus(analyst, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusCreated)})
	assert.True(t, models.IsConflict(err))

	// transição para o mesmo status é conflito
	_, err = f.svc.ChangeItemStatus(analyst, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusInProgress)})
	assert.True(t, models.IsConflict(err))
}

func TestFinalizeSetsProductOnce(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "novo_codigo", FieldValue: strPtr("PA-001")},
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")})

	updated, err := f.svc.ChangeItemStatus(admin, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	require.NoError(t, err)

	require.NotNil(t, updated.ProductID)
	assert.Equal(t, int64(42), *updated.ProductID)
	assert.Equal(t, models.StatusFinalized, updated.RequestStatusID)
	assert.Equal(t, 1, f.materializer.calls)

	stored, err := fakeItemStore{f.backend}.GetByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ProductID)
	assert.Equal(t, int64(42), *stored.ProductID)

	// o evento de finalização sai pós-commit
	assert.Eventually(t, func() bool { return f.workflows.finalizedCount() == 1 },
		time.Second, 10*time.Millisecond)

	// travado: nem outro FINALIZED passa
	_, err = f.svc.ChangeItemStatus(admin, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFailed)})
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, 1, f.materializer.calls)
}

func TestFinalizeReadiness(t *testing.T) {
	f := newFixture(t)

	// CREATE sem novo_codigo não finaliza
	create := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")})
	_, err := f.svc.ChangeItemStatus(admin, create.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	require.True(t, models.IsConflict(err))
	assert.Equal(t, 0, f.materializer.calls)

	// valor só de espaços conta como ausente
	blank := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "novo_codigo", FieldValue: strPtr("   ")})
	_, err = f.svc.ChangeItemStatus(admin, blank.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	require.True(t, models.IsConflict(err))

	// UPDATE sem nenhum dos dois códigos não finaliza
	update := f.seedItem(submitter.UserID, models.TypeUpdate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")})
	_, err = f.svc.ChangeItemStatus(admin, update.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	require.True(t, models.IsConflict(err))

	// UPDATE só com codigo_atual finaliza
	ok := f.seedItem(submitter.UserID, models.TypeUpdate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "codigo_atual", FieldValue: strPtr("PA-001")})
	updated, err := f.svc.ChangeItemStatus(admin, ok.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, updated.RequestStatusID)
}

func TestResubmitReturnedItem(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusReturned)

	// só o autor da requisição; nem ADMIN resubmete pelo usuário
	_, err := f.svc.ResubmitReturnedItem(admin, item.ID)
	assert.True(t, models.IsForbidden(err))
	_, err = f.svc.ResubmitReturnedItem(stranger, item.ID)
	assert.True(t, models.IsForbidden(err))

	updated, err := f.svc.ResubmitReturnedItem(submitter, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCreated, updated.RequestStatusID)

	// de volta a CREATED, não dá para resubmeter de novo
	_, err = f.svc.ResubmitReturnedItem(submitter, item.ID)
	assert.True(t, models.IsConflict(err))
}

func TestFieldEditsNeverChangeStatus(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusReturned,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")})

	fields, err := fakeFieldStore{f.backend}.ListByItemID(item.ID)
	require.NoError(t, err)
	fieldID := fields[0].ID

	_, err = f.svc.UpdateField(submitter, fieldID, &models.UpdateRequestItemFieldRequest{FieldValue: strPtr("Porca")})
	require.NoError(t, err)

	_, err = f.svc.AddField(submitter, item.ID, &models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "unidade", FieldValue: strPtr("UN")})
	require.NoError(t, err)

	stored, err := fakeItemStore{f.backend}.GetByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, stored.RequestStatusID)
}

func TestFieldEditPermissionMatrix(t *testing.T) {
	cases := []struct {
		name    string
		reqType models.RequestType
		status  models.RequestStatus
		actor   models.Actor
		tag     string
		allowed bool
	}{
		{"CREATE: revisor edita novo_codigo", models.TypeCreate, models.StatusCreated, analyst, "novo_codigo", true},
		{"CREATE: revisor não edita outros campos", models.TypeCreate, models.StatusCreated, analyst, "descricao", false},
		{"CREATE: revisor não edita outros campos em IN_PROGRESS", models.TypeCreate, models.StatusInProgress, admin, "descricao", false},
		{"CREATE: criador não edita fora de RETURNED", models.TypeCreate, models.StatusCreated, submitter, "descricao", false},
		{"CREATE: criador edita em RETURNED", models.TypeCreate, models.StatusReturned, submitter, "descricao", true},
		{"CREATE: criador nunca edita novo_codigo", models.TypeCreate, models.StatusReturned, submitter, "novo_codigo", false},
		{"UPDATE: criador edita codigo_atual em RETURNED", models.TypeUpdate, models.StatusReturned, submitter, "codigo_atual", true},
		{"UPDATE: criador edita novo_codigo em RETURNED", models.TypeUpdate, models.StatusReturned, submitter, "novo_codigo", true},
		{"UPDATE: criador não edita outros campos", models.TypeUpdate, models.StatusReturned, submitter, "descricao", false},
		{"UPDATE: criador não edita fora de RETURNED", models.TypeUpdate, models.StatusCreated, submitter, "codigo_atual", false},
		{"UPDATE: revisor não edita campos", models.TypeUpdate, models.StatusInProgress, admin, "novo_codigo", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			item := f.seedItem(submitter.UserID, tc.reqType, tc.status,
				models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: tc.tag, FieldValue: strPtr("antes")})

			fields, err := fakeFieldStore{f.backend}.ListByItemID(item.ID)
			require.NoError(t, err)
			fieldID := fields[0].ID

			_, updErr := f.svc.UpdateField(tc.actor, fieldID, &models.UpdateRequestItemFieldRequest{FieldValue: strPtr("depois")})
			_, addErr := f.svc.AddField(tc.actor, item.ID, &models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: tc.tag, FieldValue: strPtr("novo")})
			delErr := f.svc.DeleteField(tc.actor, fieldID)

			if tc.allowed {
				assert.NoError(t, updErr)
				assert.NoError(t, addErr)
				assert.NoError(t, delErr)
			} else {
				assert.Truef(t, models.IsForbidden(updErr), "update field: esperava FORBIDDEN, veio %v", updErr)
				assert.Truef(t, models.IsForbidden(addErr), "add field: esperava FORBIDDEN, veio %v", addErr)
				assert.Truef(t, models.IsForbidden(delErr), "delete field: esperava FORBIDDEN, veio %v", delErr)
			}
		})
	}
}

func TestItemEditOnlyByCreatorWhileReturned(t *testing.T) {
	f := newFixture(t)
	typeUpdate := int64(models.TypeUpdate)

	created := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusCreated)
	_, err := f.svc.UpdateItem(admin, created.ID, &models.UpdateRequestItemRequest{RequestTypeID: &typeUpdate})
	assert.True(t, models.IsForbidden(err))
	_, err = f.svc.UpdateItem(submitter, created.ID, &models.UpdateRequestItemRequest{RequestTypeID: &typeUpdate})
	assert.True(t, models.IsForbidden(err))

	returned := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusReturned)
	_, err = f.svc.UpdateItem(analyst, returned.ID, &models.UpdateRequestItemRequest{RequestTypeID: &typeUpdate})
	assert.True(t, models.IsForbidden(err))

	updated, err := f.svc.UpdateItem(submitter, returned.ID, &models.UpdateRequestItemRequest{RequestTypeID: &typeUpdate})
	require.NoError(t, err)
	assert.Equal(t, models.TypeUpdate, updated.RequestTypeID)
}

func TestFinalizeSharesTransactionWithStatusWrite(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "novo_codigo", FieldValue: strPtr("PA-001")})

	_, err := f.svc.ChangeItemStatus(admin, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	require.NoError(t, err)

	// a materialização e o travamento do item rodam na mesma transação
	assert.Same(t, f.backend.tx, f.materializer.tx)
	assert.Same(t, f.backend.tx, f.backend.lastFinalizeTx)
}

func TestFinalizeFailureLeavesItemUntouched(t *testing.T) {
	f := newFixture(t)
	f.materializer.err = models.NewConflictError("Código 'PA-001' não encontrado no catálogo TOTVS.")
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusInProgress,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "novo_codigo", FieldValue: strPtr("PA-001")})

	_, err := f.svc.ChangeItemStatus(admin, item.ID, &models.ChangeItemStatusRequest{RequestStatusID: int64(models.StatusFinalized)})
	assert.True(t, models.IsConflict(err))

	stored, err := fakeItemStore{f.backend}.GetByID(item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, stored.RequestStatusID)
	assert.Nil(t, stored.ProductID)
}

func TestSetFieldFlagReviewerOnly(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusCreated,
		models.RequestItemFieldPayload{FieldTypeID: 1, FieldTag: "descricao", FieldValue: strPtr("Parafuso")})

	fields, err := fakeFieldStore{f.backend}.ListByItemID(item.ID)
	require.NoError(t, err)
	fieldID := fields[0].ID

	// nem o autor marca o próprio campo
	_, err = f.svc.SetFieldFlag(submitter, fieldID, &models.SetFieldFlagRequest{FieldFlag: strPtr("REVIEW")})
	assert.True(t, models.IsForbidden(err))

	flagged, err := f.svc.SetFieldFlag(analyst, fieldID, &models.SetFieldFlagRequest{FieldFlag: strPtr("REVIEW")})
	require.NoError(t, err)
	require.NotNil(t, flagged.FieldFlag)
	assert.Equal(t, "REVIEW", *flagged.FieldFlag)

	// desmarcar é mandar nil
	cleared, err := f.svc.SetFieldFlag(analyst, fieldID, &models.SetFieldFlagRequest{})
	require.NoError(t, err)
	assert.Nil(t, cleared.FieldFlag)
}

func TestDeleteRequestWithLockedItems(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusFinalized)

	err := f.svc.Delete(submitter, item.RequestID)
	assert.True(t, models.IsConflict(err))

	req, err := f.backend.GetByID(item.RequestID)
	require.NoError(t, err)
	assert.NotNil(t, req)
}

func TestAccessIsScopedToCreatorOrReviewer(t *testing.T) {
	f := newFixture(t)
	item := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusCreated)

	_, err := f.svc.Get(stranger, item.RequestID)
	assert.True(t, models.IsForbidden(err))

	_, err = f.svc.Get(submitter, item.RequestID)
	assert.NoError(t, err)
	_, err = f.svc.Get(analyst, item.RequestID)
	assert.NoError(t, err)
}

func TestListItemsForcesOwnScopeForUsers(t *testing.T) {
	f := newFixture(t)
	mine := f.seedItem(submitter.UserID, models.TypeCreate, models.StatusCreated)
	f.seedItem(stranger.UserID, models.TypeCreate, models.StatusCreated)

	other := stranger.UserID
	page, err := f.svc.ListItems(submitter, &models.RequestItemListFilter{
		CreatedByUserID: &other,
		CreatedByName:   "fulano",
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ID, page.Items[0].ItemID)

	// o filtro pedido foi sobrescrito pelo escopo do usuário
	require.NotNil(t, f.backend.lastFilter.CreatedByUserID)
	assert.Equal(t, submitter.UserID, *f.backend.lastFilter.CreatedByUserID)
	assert.Empty(t, f.backend.lastFilter.CreatedByName)

	// revisores enxergam tudo
	all, err := f.svc.ListItems(analyst, &models.RequestItemListFilter{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, int64(2), all.Total)
}

func TestListItemsClampsPaging(t *testing.T) {
	f := newFixture(t)
	page, err := f.svc.ListItems(analyst, &models.RequestItemListFilter{Limit: 9999, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
	assert.Equal(t, 0, page.Offset)
}
