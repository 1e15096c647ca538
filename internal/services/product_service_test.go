package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductStore guarda produtos e campos em memória
type fakeProductStore struct {
	nextID   int64
	products map[int64]*models.Product
	fields   map[int64]*models.ProductField
	touched  []int64
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{
		products: make(map[int64]*models.Product),
		fields:   make(map[int64]*models.ProductField),
	}
}

func (s *fakeProductStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *fakeProductStore) CreateTx(tx *sql.Tx) (*models.Product, error) {
	product := &models.Product{ID: s.id(), CreatedAt: time.Now()}
	s.products[product.ID] = product
	return product, nil
}

func (s *fakeProductStore) FindIDByCodigoAtualTx(tx *sql.Tx, code string) (*int64, error) {
	// empate resolve pelo produto mais antigo (menor id)
	var winner *int64
	for _, field := range s.fields {
		if field.IsDeleted || field.FieldTag != models.FieldTagCodigoAtual {
			continue
		}
		if field.FieldValue == nil || *field.FieldValue != code {
			continue
		}
		id := field.ProductID
		if winner == nil || id < *winner {
			winner = &id
		}
	}
	return winner, nil
}

func (s *fakeProductStore) GetFieldByTagTx(tx *sql.Tx, productID int64, tag string) (*models.ProductField, error) {
	for _, field := range s.fields {
		if !field.IsDeleted && field.ProductID == productID && field.FieldTag == tag {
			cp := *field
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeProductStore) CreateFieldTx(tx *sql.Tx, field *models.ProductField) (*models.ProductField, error) {
	field.ID = s.id()
	field.CreatedAt = time.Now()
	cp := *field
	s.fields[field.ID] = &cp
	return field, nil
}

func (s *fakeProductStore) UpdateFieldTx(tx *sql.Tx, fieldID int64, fieldTypeID int64, value, flag *string) error {
	field, ok := s.fields[fieldID]
	if !ok {
		return sql.ErrNoRows
	}
	field.FieldTypeID = fieldTypeID
	field.FieldValue = value
	field.FieldFlag = flag
	return nil
}

func (s *fakeProductStore) TouchTx(tx *sql.Tx, productID int64) error {
	s.touched = append(s.touched, productID)
	return nil
}

func (s *fakeProductStore) GetByID(id int64) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok || product.IsDeleted {
		return nil, nil
	}
	cp := *product
	return &cp, nil
}

func (s *fakeProductStore) ListFieldsByProductID(productID int64) ([]models.ProductField, error) {
	var out []models.ProductField
	for _, field := range s.fields {
		if !field.IsDeleted && field.ProductID == productID {
			out = append(out, *field)
		}
	}
	return out, nil
}

func (s *fakeProductStore) ListPage(search string, limit, offset int) ([]models.ProductListRow, int64, error) {
	return nil, 0, nil
}

// fieldByTag é um atalho das asserções
func (s *fakeProductStore) fieldByTag(t *testing.T, productID int64, tag string) *models.ProductField {
	t.Helper()
	field, err := s.GetFieldByTagTx(nil, productID, tag)
	require.NoError(t, err)
	return field
}

// fakeCatalog responde consultas do catálogo com um mapa fixo
type fakeCatalog struct {
	products map[string]*models.TotvsProduct
}

func (c *fakeCatalog) GetByCode(code string) (*models.TotvsProduct, error) {
	return c.products[code], nil
}

func (c *fakeCatalog) Search(term string, limit int) ([]models.TotvsProduct, error) {
	return nil, nil
}

func stagedFields(fields ...models.RequestItemField) []models.RequestItemField { return fields }

func staged(tag, value string) models.RequestItemField {
	return models.RequestItemField{FieldTypeID: 1, FieldTag: tag, FieldValue: &value}
}

func TestMaterializeCreatesProduct(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	flag := "REVIEW"
	desc := staged(models.FieldTagDescricao, "Parafuso sextavado")
	desc.FieldFlag = &flag

	result, err := svc.Materialize(nil,
		&models.RequestItem{ID: 7, RequestTypeID: models.TypeCreate},
		stagedFields(staged(models.FieldTagNovoCodigo, "PA-001"), desc, staged("unidade", "UN")),
	)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "PA-001", result.CodigoAtual)
	assert.Equal(t, "Parafuso sextavado", result.Descricao)

	// o valor do novo_codigo virou codigo_atual; a tag novo_codigo não existe
	code := store.fieldByTag(t, result.ProductID, models.FieldTagCodigoAtual)
	require.NotNil(t, code)
	assert.Equal(t, "PA-001", *code.FieldValue)
	assert.Nil(t, store.fieldByTag(t, result.ProductID, models.FieldTagNovoCodigo))

	// valor e flag do campo do item entram no produto como estão
	persisted := store.fieldByTag(t, result.ProductID, models.FieldTagDescricao)
	require.NotNil(t, persisted)
	require.NotNil(t, persisted.FieldFlag)
	assert.Equal(t, "REVIEW", *persisted.FieldFlag)

	unidade := store.fieldByTag(t, result.ProductID, "unidade")
	require.NotNil(t, unidade)
	assert.Equal(t, "UN", *unidade.FieldValue)
}

func TestMaterializeUpdatesExistingProduct(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	first, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(staged(models.FieldTagNovoCodigo, "PA-001"), staged(models.FieldTagDescricao, "Parafuso")),
	)
	require.NoError(t, err)
	require.True(t, first.Created)

	// UPDATE encontra o produto pela chave de negócio e sobrescreve
	second, err := svc.Materialize(nil,
		&models.RequestItem{ID: 2, RequestTypeID: models.TypeUpdate},
		stagedFields(staged(models.FieldTagCodigoAtual, "PA-001"), staged(models.FieldTagDescricao, "Parafuso M8")),
	)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ProductID, second.ProductID)

	desc := store.fieldByTag(t, second.ProductID, models.FieldTagDescricao)
	require.NotNil(t, desc)
	assert.Equal(t, "Parafuso M8", *desc.FieldValue)
	assert.Contains(t, store.touched, second.ProductID)
}

func TestMaterializeUpdateRenamesCode(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	first, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(staged(models.FieldTagNovoCodigo, "PA-001")),
	)
	require.NoError(t, err)

	// UPDATE com novo_codigo troca a chave de negócio do mesmo produto
	second, err := svc.Materialize(nil,
		&models.RequestItem{ID: 2, RequestTypeID: models.TypeUpdate},
		stagedFields(staged(models.FieldTagCodigoAtual, "PA-001"), staged(models.FieldTagNovoCodigo, "PB-777")),
	)
	require.NoError(t, err)
	assert.Equal(t, first.ProductID, second.ProductID)
	assert.Equal(t, "PB-777", second.CodigoAtual)

	code := store.fieldByTag(t, second.ProductID, models.FieldTagCodigoAtual)
	require.NotNil(t, code)
	assert.Equal(t, "PB-777", *code.FieldValue)
}

func TestMaterializeDuplicateTagsFirstWins(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	result, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(
			staged(models.FieldTagNovoCodigo, "PA-001"),
			staged(models.FieldTagDescricao, "Primeira"),
			staged(models.FieldTagDescricao, "Segunda"),
		),
	)
	require.NoError(t, err)

	desc := store.fieldByTag(t, result.ProductID, models.FieldTagDescricao)
	require.NotNil(t, desc)
	assert.Equal(t, "Primeira", *desc.FieldValue)
}

func TestMaterializeDuplicateCodeBlankFirst(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	// para os códigos vale a primeira ocorrência com valor
	result, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(
			staged(models.FieldTagNovoCodigo, "   "),
			staged(models.FieldTagNovoCodigo, "PA-001"),
			staged(models.FieldTagDescricao, "Parafuso"),
		),
	)
	require.NoError(t, err)
	assert.Equal(t, "PA-001", result.CodigoAtual)

	code := store.fieldByTag(t, result.ProductID, models.FieldTagCodigoAtual)
	require.NotNil(t, code)
	assert.Equal(t, "PA-001", *code.FieldValue)
}

func TestMaterializeReadiness(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	_, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(staged(models.FieldTagDescricao, "Parafuso")),
	)
	assert.True(t, models.IsConflict(err))

	_, err = svc.Materialize(nil,
		&models.RequestItem{ID: 2, RequestTypeID: models.TypeUpdate},
		stagedFields(staged(models.FieldTagDescricao, "Parafuso")),
	)
	assert.True(t, models.IsConflict(err))

	// nada foi gravado
	assert.Empty(t, store.products)
	assert.Empty(t, store.fields)
}

func TestMaterializeTotvsEnrichment(t *testing.T) {
	store := newFakeProductStore()
	catalog := &fakeCatalog{products: map[string]*models.TotvsProduct{
		"PA-001": {
			Codigo:    "PA-001",
			Descricao: "PARAFUSO SEXTAVADO M8",
			Unidade:   "PC",
			Grupo:     "0010",
		},
	}}
	svc := NewProductService(store, catalog, true, testLogger())

	result, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(
			staged(models.FieldTagNovoCodigo, "PA-001"),
			staged(models.FieldTagDescricao, "descricao digitada"),
			staged("unidade", "UN"),
			staged("observacao", "manter como está"),
		),
	)
	require.NoError(t, err)

	// o catálogo é autoritativo para os campos descritivos que ele conhece
	desc := store.fieldByTag(t, result.ProductID, models.FieldTagDescricao)
	assert.Equal(t, "PARAFUSO SEXTAVADO M8", *desc.FieldValue)
	unidade := store.fieldByTag(t, result.ProductID, "unidade")
	assert.Equal(t, "PC", *unidade.FieldValue)

	// campos fora do catálogo passam intactos
	obs := store.fieldByTag(t, result.ProductID, "observacao")
	assert.Equal(t, "manter como está", *obs.FieldValue)

	assert.Equal(t, "PARAFUSO SEXTAVADO M8", result.Descricao)
}

func TestMaterializeTotvsUnknownCode(t *testing.T) {
	store := newFakeProductStore()
	catalog := &fakeCatalog{products: map[string]*models.TotvsProduct{}}
	svc := NewProductService(store, catalog, true, testLogger())

	_, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(staged(models.FieldTagNovoCodigo, "ZZ-999")),
	)
	require.True(t, models.IsConflict(err))
	assert.Empty(t, store.products)
}

func TestMaterializeTrimsCode(t *testing.T) {
	store := newFakeProductStore()
	svc := NewProductService(store, nil, false, testLogger())

	result, err := svc.Materialize(nil,
		&models.RequestItem{ID: 1, RequestTypeID: models.TypeCreate},
		stagedFields(staged(models.FieldTagNovoCodigo, "  PA-001  ")),
	)
	require.NoError(t, err)
	assert.Equal(t, "PA-001", result.CodigoAtual)
}
