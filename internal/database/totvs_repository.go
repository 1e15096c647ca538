package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// TotvsProductRepository consulta o catálogo de produtos do ERP TOTVS
// (tabelas SB1010/SA5010, somente leitura).
type TotvsProductRepository struct {
	db     *TotvsDB
	logger *logrus.Logger
}

// NewTotvsProductRepository cria uma nova instância do repositório
func NewTotvsProductRepository(db *TotvsDB, logger *logrus.Logger) *TotvsProductRepository {
	return &TotvsProductRepository{
		db:     db,
		logger: logger,
	}
}

const totvsProductColumns = `
	LTRIM(RTRIM(B1_COD)), LTRIM(RTRIM(B1_GRUPO)), LTRIM(RTRIM(B1_TIPO)),
	LTRIM(RTRIM(B1_DESC)), LTRIM(RTRIM(B1_LOCPAD)), LTRIM(RTRIM(B1_UM)),
	LTRIM(RTRIM(B1_TPMAT)), LTRIM(RTRIM(B1_REFEREN))
`

func scanTotvsProduct(row interface{ Scan(...interface{}) error }) (*models.TotvsProduct, error) {
	var p models.TotvsProduct
	err := row.Scan(
		&p.Codigo, &p.Grupo, &p.Tipo, &p.Descricao,
		&p.ArmazemPadrao, &p.Unidade, &p.ProdutoTerceiro, &p.RefCliente,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByCode busca um produto do catálogo pelo código exato; retorna nil
// quando o código não existe no ERP. Registros marcados com D_E_L_E_T_
// são ignorados.
func (r *TotvsProductRepository) GetByCode(code string) (*models.TotvsProduct, error) {
	query := `
		SELECT ` + totvsProductColumns + `
		FROM SB1010
		WHERE LTRIM(RTRIM(B1_COD)) = @p1 AND D_E_L_E_T_ <> '*'
	`

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	product, err := scanTotvsProduct(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying TOTVS product: %w", err)
	}

	suppliers, err := r.listSuppliers(ctx, product.Codigo)
	if err != nil {
		return nil, err
	}
	product.Fornecedores = suppliers

	return product, nil
}

// Search lista produtos do catálogo cujo código ou descrição contém o
// termo informado, limitado a uma página.
func (r *TotvsProductRepository) Search(term string, limit int) ([]models.TotvsProduct, error) {
	query := `
		SELECT TOP (@p1) ` + totvsProductColumns + `
		FROM SB1010
		WHERE (B1_COD LIKE @p2 OR B1_DESC LIKE @p2) AND D_E_L_E_T_ <> '*'
		ORDER BY B1_COD
	`

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, limit, "%"+term+"%")
	if err != nil {
		return nil, fmt.Errorf("error searching TOTVS products: %w", err)
	}
	defer rows.Close()

	var out []models.TotvsProduct
	for rows.Next() {
		product, err := scanTotvsProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning TOTVS product: %w", err)
		}
		out = append(out, *product)
	}

	return out, nil
}

// listSuppliers carrega os fornecedores vinculados ao produto (SA5010)
func (r *TotvsProductRepository) listSuppliers(ctx context.Context, code string) ([]models.TotvsSupplier, error) {
	query := `
		SELECT LTRIM(RTRIM(A5_FORNECE)), LTRIM(RTRIM(A5_LOJA)),
		       LTRIM(RTRIM(A5_NOMEFOR)), LTRIM(RTRIM(A5_CODPRF))
		FROM SA5010
		WHERE LTRIM(RTRIM(A5_PRODUTO)) = @p1 AND D_E_L_E_T_ <> '*'
	`

	rows, err := r.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, fmt.Errorf("error querying TOTVS suppliers: %w", err)
	}
	defer rows.Close()

	var out []models.TotvsSupplier
	for rows.Next() {
		var s models.TotvsSupplier
		if err := rows.Scan(&s.SupplierCode, &s.Store, &s.SupplierName, &s.PartNumber); err != nil {
			return nil, fmt.Errorf("error scanning TOTVS supplier: %w", err)
		}
		out = append(out, s)
	}

	return out, nil
}
