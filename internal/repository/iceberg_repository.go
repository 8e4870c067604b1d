package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"iceberg-service/internal/models"
)

// IcebergRepository provides methods to interact with the Iceberg model in the database.
type IcebergRepository struct {
	db *gorm.DB
}

// NewIcebergRepository creates a new IcebergRepository instance with the provided GORM database connection.
func NewIcebergRepository(db *gorm.DB) *IcebergRepository {
	return &IcebergRepository{db: db}
}

// Create inserts a new Iceberg record.
func (r *IcebergRepository) Create(iceberg *models.Iceberg) error {
	return r.db.Create(iceberg).Error
}

// Save persists changes to an existing Iceberg record.
func (r *IcebergRepository) Save(iceberg *models.Iceberg) error {
	return r.db.Save(iceberg).Error
}

// GetByID retrieves an Iceberg by its ID.
func (r *IcebergRepository) GetByID(id uuid.UUID) (*models.Iceberg, error) {
	var iceberg models.Iceberg
	err := r.db.First(&iceberg, "id = ?", id).Error
	return &iceberg, err
}

// GetByName retrieves the first Iceberg with an exact name match.
func (r *IcebergRepository) GetByName(name string) (*models.Iceberg, error) {
	var iceberg models.Iceberg
	err := r.db.First(&iceberg, "name = ?", name).Error
	return &iceberg, err
}

// List retrieves all Iceberg records.
func (r *IcebergRepository) List() ([]models.Iceberg, error) {
	var icebergs []models.Iceberg
	err := r.db.Order("created_at").Find(&icebergs).Error
	return icebergs, err
}

// Count returns the number of Iceberg records.
func (r *IcebergRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Iceberg{}).Count(&count).Error
	return count, err
}

// Transaction runs fn against a repository bound to a database transaction.
// The lookup-or-create reconciliation uses this so the read and the write
// commit as one unit.
func (r *IcebergRepository) Transaction(fn func(tx *IcebergRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&IcebergRepository{db: tx})
	})
}
