package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hypernova-labs/cadastro-service/internal/config"
	_ "github.com/microsoft/go-mssqldb"
)

// TotvsDB representa a conexão somente-leitura ao SQL Server do ERP TOTVS
type TotvsDB struct {
	*sql.DB
}

// ConnectTotvs estabelece a conexão ao banco do TOTVS
func ConnectTotvs(cfg *config.Config) (*TotvsDB, error) {
	if !cfg.Totvs.Enabled() {
		return nil, fmt.Errorf("TOTVS database not configured")
	}

	db, err := sql.Open("sqlserver", cfg.GetTotvsDSN())
	if err != nil {
		return nil, fmt.Errorf("error opening TOTVS database: %w", err)
	}

	// Pool conservador: banco de terceiros, somente consultas pontuais
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error pinging TOTVS database: %w", err)
	}

	return &TotvsDB{db}, nil
}

// Close fecha a conexão ao TOTVS
func (db *TotvsDB) Close() error {
	return db.DB.Close()
}

// HealthCheck verifica a saúde da conexão TOTVS
func (db *TotvsDB) HealthCheck() error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("TOTVS ping failed: %w", err)
	}
	return nil
}
