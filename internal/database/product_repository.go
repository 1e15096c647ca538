package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ProductRepository cuida das operações de banco para Product e ProductField.
// A materialização roda dentro de uma transação, por isso a maior parte dos
// métodos de escrita recebe *sql.Tx.
type ProductRepository struct {
	db     *DB
	logger *logrus.Logger
}

// NewProductRepository cria uma nova instância do repositório
func NewProductRepository(db *DB, logger *logrus.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTx insere um novo produto dentro da transação
func (r *ProductRepository) CreateTx(tx *sql.Tx) (*models.Product, error) {
	product := &models.Product{CreatedAt: time.Now()}

	err := tx.QueryRow(
		`INSERT INTO products (created_at) VALUES ($1) RETURNING id`,
		product.CreatedAt,
	).Scan(&product.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating product: %w", err)
	}

	return product, nil
}

// FindIDByCodigoAtualTx resolve o produto dono de um codigo_atual. Quando
// mais de um produto carrega o mesmo código, vale o mais antigo (menor id).
func (r *ProductRepository) FindIDByCodigoAtualTx(tx *sql.Tx, code string) (*int64, error) {
	query := `
		SELECT pf.product_id
		FROM product_fields pf
		JOIN products p ON p.id = pf.product_id
		WHERE pf.field_tag = $1 AND pf.field_value = $2
		  AND pf.is_deleted = false AND p.is_deleted = false
		ORDER BY pf.product_id ASC
		LIMIT 1
	`

	var productID int64
	err := tx.QueryRow(query, models.FieldTagCodigoAtual, code).Scan(&productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error resolving product by codigo_atual: %w", err)
	}

	return &productID, nil
}

// GetFieldByTagTx busca um campo do produto pela tag; retorna nil quando não existe
func (r *ProductRepository) GetFieldByTagTx(tx *sql.Tx, productID int64, tag string) (*models.ProductField, error) {
	query := `
		SELECT id, product_id, field_type_id, field_tag, field_value, field_flag, created_at, updated_at
		FROM product_fields
		WHERE product_id = $1 AND field_tag = $2 AND is_deleted = false
		ORDER BY id ASC
		LIMIT 1
	`

	var field models.ProductField
	err := tx.QueryRow(query, productID, tag).Scan(
		&field.ID, &field.ProductID, &field.FieldTypeID, &field.FieldTag,
		&field.FieldValue, &field.FieldFlag, &field.CreatedAt, &field.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying product field: %w", err)
	}

	return &field, nil
}

// CreateFieldTx insere um campo do produto dentro da transação
func (r *ProductRepository) CreateFieldTx(tx *sql.Tx, field *models.ProductField) (*models.ProductField, error) {
	query := `
		INSERT INTO product_fields (
			product_id, field_type_id, field_tag, field_value, field_flag, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	field.CreatedAt = time.Now()
	err := tx.QueryRow(query,
		field.ProductID, field.FieldTypeID, field.FieldTag,
		field.FieldValue, field.FieldFlag, field.CreatedAt,
	).Scan(&field.ID)
	if err != nil {
		return nil, fmt.Errorf("error creating product field: %w", err)
	}

	return field, nil
}

// UpdateFieldTx grava valor, flag e tipo de um campo existente do produto
func (r *ProductRepository) UpdateFieldTx(tx *sql.Tx, fieldID int64, fieldTypeID int64, value, flag *string) error {
	query := `
		UPDATE product_fields
		SET field_value = $1, field_flag = $2, field_type_id = $3, updated_at = $4
		WHERE id = $5 AND is_deleted = false
	`

	if _, err := tx.Exec(query, value, flag, fieldTypeID, time.Now(), fieldID); err != nil {
		return fmt.Errorf("error updating product field: %w", err)
	}
	return nil
}

// TouchTx atualiza o updated_at do produto dentro da transação
func (r *ProductRepository) TouchTx(tx *sql.Tx, productID int64) error {
	if _, err := tx.Exec(`UPDATE products SET updated_at = $1 WHERE id = $2`, time.Now(), productID); err != nil {
		return fmt.Errorf("error touching product: %w", err)
	}
	return nil
}

// GetByID busca um produto por ID; retorna nil quando não existe
func (r *ProductRepository) GetByID(id int64) (*models.Product, error) {
	query := `SELECT id, created_at, updated_at FROM products WHERE id = $1 AND is_deleted = false`

	var product models.Product
	err := r.db.QueryRowWithTimeout(query, id).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying product: %w", err)
	}

	return &product, nil
}

// ListFieldsByProductID retorna os campos ativos do produto
func (r *ProductRepository) ListFieldsByProductID(productID int64) ([]models.ProductField, error) {
	query := `
		SELECT id, product_id, field_type_id, field_tag, field_value, field_flag, created_at, updated_at
		FROM product_fields
		WHERE product_id = $1 AND is_deleted = false
		ORDER BY id ASC
	`

	rows, err := r.db.QueryWithTimeout(query, productID)
	if err != nil {
		return nil, fmt.Errorf("error querying product fields: %w", err)
	}
	defer rows.Close()

	var out []models.ProductField
	for rows.Next() {
		var field models.ProductField
		err := rows.Scan(
			&field.ID, &field.ProductID, &field.FieldTypeID, &field.FieldTag,
			&field.FieldValue, &field.FieldFlag, &field.CreatedAt, &field.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning product field: %w", err)
		}
		out = append(out, field)
	}

	return out, nil
}

// ListPage retorna a página de produtos com as projeções de codigo_atual e
// descricao, filtrando opcionalmente por trecho do código ou da descrição.
func (r *ProductRepository) ListPage(search string, limit, offset int) ([]models.ProductListRow, int64, error) {
	where := `WHERE p.is_deleted = false`
	args := []interface{}{}
	if search != "" {
		args = append(args, "%"+search+"%")
		where += fmt.Sprintf(` AND (ca.field_value ILIKE $%d OR de.field_value ILIKE $%d)`, len(args), len(args))
	}

	from := fmt.Sprintf(`
		FROM products p
		LEFT JOIN LATERAL (
			SELECT field_value FROM product_fields
			WHERE product_id = p.id AND field_tag = '%s' AND is_deleted = false
			ORDER BY id ASC LIMIT 1
		) ca ON true
		LEFT JOIN LATERAL (
			SELECT field_value FROM product_fields
			WHERE product_id = p.id AND field_tag = '%s' AND is_deleted = false
			ORDER BY id ASC LIMIT 1
		) de ON true
	`, models.FieldTagCodigoAtual, models.FieldTagDescricao)

	var total int64
	if err := r.db.QueryRowWithTimeout(`SELECT COUNT(*) `+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting products: %w", err)
	}

	query := `
		SELECT p.id, p.created_at, p.updated_at, ca.field_value, de.field_value
	` + from + where + fmt.Sprintf(`
		ORDER BY p.id DESC
		LIMIT $%d OFFSET $%d
	`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryWithTimeout(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying products: %w", err)
	}
	defer rows.Close()

	var out []models.ProductListRow
	for rows.Next() {
		var row models.ProductListRow
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.UpdatedAt, &row.CodigoAtual, &row.Descricao); err != nil {
			return nil, 0, fmt.Errorf("error scanning product row: %w", err)
		}
		out = append(out, row)
	}

	return out, total, nil
}
