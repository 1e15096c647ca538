package services

import (
	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ProductQueryService atende o lado de consulta dos produtos: a listagem
// paginada, o detalhe e o passthrough ao catálogo TOTVS.
type ProductQueryService struct {
	productRepo ProductStore
	catalog     TotvsCatalog
	logger      *logrus.Logger
}

// NewProductQueryService cria uma nova instância do serviço. catalog pode
// ser nil quando a integração TOTVS está desligada.
func NewProductQueryService(productRepo ProductStore, catalog TotvsCatalog, logger *logrus.Logger) *ProductQueryService {
	return &ProductQueryService{
		productRepo: productRepo,
		catalog:     catalog,
		logger:      logger,
	}
}

// List retorna a página de produtos materializados
func (s *ProductQueryService) List(search string, limit, offset int) (*models.ProductListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.productRepo.ListPage(search, limit, offset)
	if err != nil {
		return nil, err
	}

	return &models.ProductListResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Get retorna o produto com todos os campos
func (s *ProductQueryService) Get(id int64) (*models.ProductDetail, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, models.NewNotFoundError("Produto não encontrado.")
	}

	fields, err := s.productRepo.ListFieldsByProductID(id)
	if err != nil {
		return nil, err
	}

	return &models.ProductDetail{Product: *product, Fields: fields}, nil
}

// TotvsGet busca um produto no catálogo do ERP pelo código exato
func (s *ProductQueryService) TotvsGet(code string) (*models.TotvsProduct, error) {
	if s.catalog == nil {
		return nil, models.NewConflictError("Integração TOTVS não está configurada.")
	}

	product, err := s.catalog.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, models.NewNotFoundError("Produto não encontrado no catálogo TOTVS.")
	}
	return product, nil
}

// TotvsSearch lista produtos do catálogo por trecho de código ou descrição
func (s *ProductQueryService) TotvsSearch(term string, limit int) ([]models.TotvsProduct, error) {
	if s.catalog == nil {
		return nil, models.NewConflictError("Integração TOTVS não está configurada.")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	return s.catalog.Search(term, limit)
}
