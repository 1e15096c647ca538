package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ProductService materializa itens finalizados em produtos de cadastro.
//
// O fluxo de finalização funciona em cima de dois campos com semântica
// especial: codigo_atual é a chave de negócio do produto e novo_codigo é
// um código em staging que só existe no item. Na materialização o valor
// de novo_codigo vira o codigo_atual do produto; a tag novo_codigo nunca
// é gravada no produto.
type ProductService struct {
	productRepo ProductStore
	catalog     TotvsCatalog
	enrich      bool
	logger      *logrus.Logger
}

// NewProductService cria uma nova instância do serviço. catalog pode ser
// nil quando a integração TOTVS está desligada.
func NewProductService(productRepo ProductStore, catalog TotvsCatalog, enrich bool, logger *logrus.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		catalog:     catalog,
		enrich:      enrich && catalog != nil,
		logger:      logger,
	}
}

// stagedValue devolve o valor aparado de um campo staging (vazio quando ausente)
func stagedValue(field *models.RequestItemField) string {
	if field == nil || field.FieldValue == nil {
		return ""
	}
	return strings.TrimSpace(*field.FieldValue)
}

// Materialize aplica os campos staged de um item no produto correspondente,
// criando o produto quando a chave de negócio ainda não existe. Roda dentro
// da transação do chamador, a mesma que trava o item finalizado.
func (s *ProductService) Materialize(tx *sql.Tx, item *models.RequestItem, fields []models.RequestItemField) (*models.MaterializeResult, error) {
	staged := make(map[string]*models.RequestItemField, len(fields))
	ordered := make([]*models.RequestItemField, 0, len(fields))
	for i := range fields {
		f := &fields[i]
		if prev, seen := staged[f.FieldTag]; seen {
			// para os códigos vale a primeira ocorrência com valor, igual
			// à checagem de prontidão
			if (f.FieldTag == models.FieldTagNovoCodigo || f.FieldTag == models.FieldTagCodigoAtual) &&
				stagedValue(prev) == "" && stagedValue(f) != "" {
				staged[f.FieldTag] = f
			}
			continue
		}
		staged[f.FieldTag] = f
		ordered = append(ordered, f)
	}

	novoCodigo := stagedValue(staged[models.FieldTagNovoCodigo])
	codigoAtual := stagedValue(staged[models.FieldTagCodigoAtual])

	// A prontidão já foi verificada na troca de status, mas o serviço
	// revalida porque a regra pertence à materialização.
	var lookupCode, effectiveCode string
	switch item.RequestTypeID {
	case models.TypeCreate:
		if novoCodigo == "" {
			return nil, models.NewConflictError("Para finalizar CREATE, 'novo_codigo' é obrigatório.")
		}
		lookupCode = novoCodigo
		effectiveCode = novoCodigo
	case models.TypeUpdate:
		if novoCodigo == "" && codigoAtual == "" {
			return nil, models.NewConflictError("Para finalizar UPDATE, informe 'novo_codigo' ou 'codigo_atual'.")
		}
		lookupCode = codigoAtual
		effectiveCode = novoCodigo
		if effectiveCode == "" {
			effectiveCode = codigoAtual
		}
	default:
		return nil, models.NewConflictError(fmt.Sprintf("Tipo de requisição desconhecido: %d.", item.RequestTypeID))
	}

	// O tipo e a flag do codigo_atual materializado vêm do próprio campo
	// quando staged; senão herdam os do novo_codigo.
	var codeFieldTypeID int64
	var codeFieldFlag *string
	if f := staged[models.FieldTagCodigoAtual]; f != nil {
		codeFieldTypeID = f.FieldTypeID
		codeFieldFlag = f.FieldFlag
	} else if f := staged[models.FieldTagNovoCodigo]; f != nil {
		codeFieldTypeID = f.FieldTypeID
		codeFieldFlag = f.FieldFlag
	} else {
		return nil, models.NewConflictError("Não foi possível determinar o tipo do campo 'codigo_atual'.")
	}

	var catalogProduct *models.TotvsProduct
	if s.enrich {
		found, err := s.catalog.GetByCode(effectiveCode)
		if err != nil {
			return nil, fmt.Errorf("error consulting TOTVS catalog: %w", err)
		}
		if found == nil {
			return nil, models.NewConflictError(
				fmt.Sprintf("Código '%s' não encontrado no catálogo TOTVS.", effectiveCode))
		}
		catalogProduct = found
	}

	result := &models.MaterializeResult{CodigoAtual: effectiveCode}

	var productID int64
	created := false

	if lookupCode != "" {
		existing, err := s.productRepo.FindIDByCodigoAtualTx(tx, lookupCode)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			productID = *existing
		}
	}
	if productID == 0 {
		product, err := s.productRepo.CreateTx(tx)
		if err != nil {
			return nil, err
		}
		productID = product.ID
		created = true
	}

	for _, f := range ordered {
		if f.FieldTag == models.FieldTagCodigoAtual || f.FieldTag == models.FieldTagNovoCodigo {
			continue
		}
		value := f.FieldValue
		if catalogProduct != nil {
			if enriched := catalogProduct.DescriptiveFieldValue(f.FieldTag); enriched != "" {
				value = &enriched
			}
		}
		if err := s.upsertFieldTx(tx, productID, f.FieldTag, f.FieldTypeID, value, f.FieldFlag); err != nil {
			return nil, err
		}
		if f.FieldTag == models.FieldTagDescricao && value != nil {
			result.Descricao = *value
		}
	}

	if err := s.upsertFieldTx(tx, productID, models.FieldTagCodigoAtual, codeFieldTypeID, &effectiveCode, codeFieldFlag); err != nil {
		return nil, err
	}

	if !created {
		if err := s.productRepo.TouchTx(tx, productID); err != nil {
			return nil, err
		}
	}

	result.ProductID = productID
	result.Created = created

	s.logger.WithFields(logrus.Fields{
		"item_id":      item.ID,
		"product_id":   result.ProductID,
		"created":      result.Created,
		"codigo_atual": result.CodigoAtual,
	}).Info("Product materialized")

	return result, nil
}

// upsertFieldTx grava valor e flag de uma tag do produto, criando o campo
// na primeira materialização. Valor e flag são copiados do campo do item
// tal como estão.
func (s *ProductService) upsertFieldTx(tx *sql.Tx, productID int64, tag string, fieldTypeID int64, value, flag *string) error {
	existing, err := s.productRepo.GetFieldByTagTx(tx, productID, tag)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.productRepo.UpdateFieldTx(tx, existing.ID, fieldTypeID, value, flag)
	}

	_, err = s.productRepo.CreateFieldTx(tx, &models.ProductField{
		ProductID:   productID,
		FieldTypeID: fieldTypeID,
		FieldTag:    tag,
		FieldValue:  value,
		FieldFlag:   flag,
	})
	return err
}
