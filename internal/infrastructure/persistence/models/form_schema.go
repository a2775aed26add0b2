package models

import (
	"time"

	"github.com/google/uuid"
)

// FormSchemaModel is the registry row binding a table name to a definition
// hash. The (table name, hash) pair is immutable: re-registering the same
// table with a different hash is rejected.
type FormSchemaModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Table      string    `gorm:"column:table_name;uniqueIndex;not null"`
	Hash       string    `gorm:"not null"`
	Definition string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for FormSchemaModel
func (FormSchemaModel) TableName() string {
	return "form_schemas"
}
