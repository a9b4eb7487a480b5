package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
	"github.com/cotalabs/cotiza/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a single Badger store.
type Manager struct {
	db           *BadgerDB
	products     interfaces.ProductStorage
	suppliers    interfaces.SupplierStorage
	quotations   interfaces.QuotationStorage
	missingItems interfaces.MissingItemStorage
	reports      interfaces.ReportStorage
	kv           interfaces.KeyValueStorage
}

// NewManager opens the database and wires the per-entity storages.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return &Manager{
		db:           db,
		products:     NewProductStorage(db, logger),
		suppliers:    NewSupplierStorage(db, logger),
		quotations:   NewQuotationStorage(db, logger),
		missingItems: NewMissingItemStorage(db, logger),
		reports:      NewReportStorage(db, logger),
		kv:           NewKVStorage(db, logger),
	}, nil
}

func (m *Manager) Products() interfaces.ProductStorage         { return m.products }
func (m *Manager) Suppliers() interfaces.SupplierStorage       { return m.suppliers }
func (m *Manager) Quotations() interfaces.QuotationStorage     { return m.quotations }
func (m *Manager) MissingItems() interfaces.MissingItemStorage { return m.missingItems }
func (m *Manager) Reports() interfaces.ReportStorage           { return m.reports }
func (m *Manager) KV() interfaces.KeyValueStorage              { return m.kv }

// Close closes the underlying database.
func (m *Manager) Close() error {
	return m.db.Close()
}
