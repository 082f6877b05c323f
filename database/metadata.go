package database

import (
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// View is a SQL view created alongside the model tables.
type View struct {
	Name string
	// SQL is the SELECT statement backing the view. Takes precedence over Query.
	SQL string
	// Query builds the SELECT with gorm, e.g.
	//
	//	func(tx *gorm.DB) *gorm.DB {
	//	    return tx.Table("users").Select("id, name").Where("active = ?", true)
	//	}
	Query func(tx *gorm.DB) *gorm.DB
}

// render returns the SELECT statement of the view.
func (v View) render(db *gorm.DB) (string, error) {
	if v.SQL != "" {
		return v.SQL, nil
	}
	if v.Query == nil {
		return "", fmt.Errorf("view %s has neither SQL nor Query", v.Name)
	}
	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		return v.Query(tx).Find(&[]map[string]interface{}{})
	})
	if sql == "" {
		return "", fmt.Errorf("view %s: query rendered no SQL", v.Name)
	}
	return sql, nil
}

// Metadata records the models and views materialized by CreateTables.
type Metadata struct {
	mu     sync.RWMutex
	models []interface{}
	views  []View
	cache  *sync.Map
}

// NewMetadata returns an empty metadata registry.
func NewMetadata() *Metadata {
	return &Metadata{cache: &sync.Map{}}
}

// DefaultMetadata is shared by every Interface not given its own.
var DefaultMetadata = NewMetadata()

// RegisterModels adds models to DefaultMetadata.
func RegisterModels(models ...interface{}) { DefaultMetadata.Register(models...) }

// RegisterViews adds views to DefaultMetadata.
func RegisterViews(views ...View) { DefaultMetadata.RegisterView(views...) }

// Register adds models. Models are migrated in registration order, so
// register referenced tables first.
func (m *Metadata) Register(models ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = append(m.models, models...)
}

// RegisterView adds views. A view replaces an earlier one with the same name.
func (m *Metadata) RegisterView(views ...View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range views {
		replaced := false
		for i := range m.views {
			if m.views[i].Name == v.Name {
				m.views[i] = v
				replaced = true
				break
			}
		}
		if !replaced {
			m.views = append(m.views, v)
		}
	}
}

// Models returns the registered models in registration order.
func (m *Metadata) Models() []interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]interface{}(nil), m.models...)
}

// Views returns the registered views in registration order.
func (m *Metadata) Views() []View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]View(nil), m.views...)
}

// Tables maps table names to their models using namer (the default naming
// strategy when nil).
func (m *Metadata) Tables(namer schema.Namer) (map[string]interface{}, error) {
	if namer == nil {
		namer = schema.NamingStrategy{}
	}
	tables := make(map[string]interface{})
	for _, model := range m.Models() {
		s, err := schema.Parse(model, m.schemaCache(), namer)
		if err != nil {
			return tables, fmt.Errorf("parse %T: %w", model, err)
		}
		tables[s.Table] = model
	}
	return tables, nil
}

// Reset drops every registered model and view.
func (m *Metadata) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = nil
	m.views = nil
	m.cache = &sync.Map{}
}

func (m *Metadata) schemaCache() *sync.Map {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cache
}
