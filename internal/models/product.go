package models

import "time"

// Product representa o registro materializado de cadastro.
// A identidade de negócio fica no ProductField com tag codigo_atual.
type Product struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	IsDeleted bool       `json:"-"`
}

// ProductField é um par chave/valor tipado do produto (mesma forma do item)
type ProductField struct {
	ID          int64      `json:"id"`
	ProductID   int64      `json:"product_id"`
	FieldTypeID int64      `json:"field_type_id"`
	FieldTag    string     `json:"field_tag"`
	FieldValue  *string    `json:"field_value"`
	FieldFlag   *string    `json:"field_flag"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	IsDeleted   bool       `json:"-"`
}

// ProductListRow é a projeção da listagem (codigo_atual/descricao)
type ProductListRow struct {
	ID          int64      `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	CodigoAtual *string    `json:"codigo_atual"`
	Descricao   *string    `json:"descricao"`
}

// ProductListResponse é a página retornada pela listagem de produtos
type ProductListResponse struct {
	Items  []ProductListRow `json:"items"`
	Total  int64            `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ProductDetail é o produto com todos os campos
type ProductDetail struct {
	Product
	Fields []ProductField `json:"fields"`
}

// MaterializeResult resume a finalização aplicada para auditoria
type MaterializeResult struct {
	ProductID   int64  `json:"product_id"`
	Created     bool   `json:"created"`
	CodigoAtual string `json:"codigo_atual"`
	Descricao   string `json:"descricao"`
}

// TotvsSupplier representa um fornecedor vinculado no ERP
type TotvsSupplier struct {
	SupplierCode string `json:"supplier_code"`
	Store        string `json:"store"`
	SupplierName string `json:"supplier_name"`
	PartNumber   string `json:"part_number"`
}

// TotvsProduct representa um produto lido do catálogo TOTVS (somente leitura)
type TotvsProduct struct {
	Codigo          string          `json:"codigo"`
	Grupo           string          `json:"grupo"`
	Tipo            string          `json:"tipo"`
	Descricao       string          `json:"descricao"`
	ArmazemPadrao   string          `json:"armazem_padrao"`
	Unidade         string          `json:"unidade"`
	ProdutoTerceiro string          `json:"produto_terceiro"`
	RefCliente      string          `json:"ref_cliente"`
	Fornecedores    []TotvsSupplier `json:"fornecedores"`
}

// DescriptiveFieldValue retorna o valor autoritativo do catálogo para uma tag
// descritiva, ou "" quando o catálogo não informa aquele atributo.
func (p *TotvsProduct) DescriptiveFieldValue(tag string) string {
	switch tag {
	case FieldTagDescricao:
		return p.Descricao
	case "unidade":
		return p.Unidade
	case "grupo":
		return p.Grupo
	case "tipo":
		return p.Tipo
	case "armazem_padrao":
		return p.ArmazemPadrao
	case "produto_terceiro":
		return p.ProdutoTerceiro
	case "ref_cliente":
		return p.RefCliente
	}
	return ""
}
