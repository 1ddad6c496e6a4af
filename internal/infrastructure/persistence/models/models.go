// Package models contains GORM persistence models and their conversions to
// and from domain types. Domain types never carry GORM tags.
package models

import (
	"time"

	"github.com/erp/connector/internal/domain/command"
	"github.com/erp/connector/internal/domain/erp"
	"github.com/google/uuid"
)

// IncomingCommandModel is the ledger row for one received command. The
// unique index on idempotency_key is what makes duplicate deliveries
// collapse to a single row.
type IncomingCommandModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	IdempotencyKey string    `gorm:"size:128;not null;uniqueIndex"`
	ReceivedAt     time.Time `gorm:"not null;index"`
	StoreID        string    `gorm:"size:128;not null;index"`
	StoreAccountID string    `gorm:"size:128"`
	CommandType    string    `gorm:"size:64;not null;index"`
	EntityType     string    `gorm:"size:64"`
	Payload        []byte    `gorm:"type:bytes"`
	Status         string    `gorm:"size:16;not null"`
	SkipReason     string    `gorm:"size:255"`
	ErrorDetails   string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`

	ApplyResults []ApplyResultModel `gorm:"foreignKey:CommandID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for IncomingCommandModel
func (IncomingCommandModel) TableName() string {
	return "incoming_commands"
}

// ApplyResultModel is one per-entity apply outcome under a command.
type ApplyResultModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CommandID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Seq        int       `gorm:"not null"`
	ERPDoctype string    `gorm:"size:64"`
	ERPDoc     string    `gorm:"size:255"`
	Status     string    `gorm:"size:16;not null"`
	Message    string    `gorm:"type:text"`
	Warnings   []byte    `gorm:"type:bytes"`
	Errors     []byte    `gorm:"type:bytes"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for ApplyResultModel
func (ApplyResultModel) TableName() string {
	return "command_apply_results"
}

// NonceLogModel records a consumed nonce. The composite unique index gives
// the atomic check-and-record its correctness across processes.
type NonceLogModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	InstanceID string    `gorm:"size:128;not null;uniqueIndex:idx_nonce_instance"`
	Nonce      string    `gorm:"size:128;not null;uniqueIndex:idx_nonce_instance"`
	SeenAt     time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for NonceLogModel
func (NonceLogModel) TableName() string {
	return "nonce_log"
}

// ERPRecordModel is one ERP document of any doctype. Name is the document
// identity within a doctype; ExternalID, StoreID and Code are the lookup
// keys the sync handlers match on.
type ERPRecordModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Doctype    string    `gorm:"size:64;not null;uniqueIndex:idx_erp_doctype_name;index:idx_erp_doctype_external;index:idx_erp_doctype_code"`
	Name       string    `gorm:"size:255;not null;uniqueIndex:idx_erp_doctype_name"`
	ExternalID string    `gorm:"size:255;index:idx_erp_doctype_external"`
	StoreID    string    `gorm:"size:128;index"`
	Code       string    `gorm:"size:255;index:idx_erp_doctype_code"`
	Fields     []byte    `gorm:"type:bytes"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for ERPRecordModel
func (ERPRecordModel) TableName() string {
	return "erp_records"
}

// ToDomain converts IncomingCommandModel to a domain IncomingCommand
func (m *IncomingCommandModel) ToDomain() *command.IncomingCommand {
	cmd := &command.IncomingCommand{
		ID:             m.ID,
		IdempotencyKey: m.IdempotencyKey,
		ReceivedAt:     m.ReceivedAt,
		StoreID:        m.StoreID,
		StoreAccountID: m.StoreAccountID,
		CommandType:    m.CommandType,
		EntityType:     m.EntityType,
		Payload:        m.Payload,
		Status:         command.Status(m.Status),
		SkipReason:     m.SkipReason,
		ErrorDetails:   m.ErrorDetails,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if len(m.ApplyResults) > 0 {
		cmd.ApplyResults = make([]command.ApplyRecord, len(m.ApplyResults))
		for i, r := range m.ApplyResults {
			cmd.ApplyResults[i] = r.ToDomain()
		}
	}
	return cmd
}

// IncomingCommandModelFromDomain converts a domain IncomingCommand to its model
func IncomingCommandModelFromDomain(cmd *command.IncomingCommand) *IncomingCommandModel {
	model := &IncomingCommandModel{
		ID:             cmd.ID,
		IdempotencyKey: cmd.IdempotencyKey,
		ReceivedAt:     cmd.ReceivedAt,
		StoreID:        cmd.StoreID,
		StoreAccountID: cmd.StoreAccountID,
		CommandType:    cmd.CommandType,
		EntityType:     cmd.EntityType,
		Payload:        cmd.Payload,
		Status:         string(cmd.Status),
		SkipReason:     cmd.SkipReason,
		ErrorDetails:   cmd.ErrorDetails,
		CreatedAt:      cmd.CreatedAt,
		UpdatedAt:      cmd.UpdatedAt,
	}
	if len(cmd.ApplyResults) > 0 {
		model.ApplyResults = make([]ApplyResultModel, len(cmd.ApplyResults))
		for i, r := range cmd.ApplyResults {
			model.ApplyResults[i] = ApplyResultModelFromDomain(cmd.ID, r)
		}
	}
	return model
}

// ToDomain converts ApplyResultModel to a domain ApplyRecord
func (m *ApplyResultModel) ToDomain() command.ApplyRecord {
	return command.ApplyRecord{
		Seq:        m.Seq,
		ERPDoctype: m.ERPDoctype,
		ERPDoc:     m.ERPDoc,
		Status:     command.Status(m.Status),
		Message:    m.Message,
		Warnings:   decodeMessages(m.Warnings),
		Errors:     decodeMessages(m.Errors),
	}
}

// ApplyResultModelFromDomain converts a domain ApplyRecord to its model
func ApplyResultModelFromDomain(commandID uuid.UUID, r command.ApplyRecord) ApplyResultModel {
	return ApplyResultModel{
		CommandID:  commandID,
		Seq:        r.Seq,
		ERPDoctype: r.ERPDoctype,
		ERPDoc:     r.ERPDoc,
		Status:     string(r.Status),
		Message:    r.Message,
		Warnings:   encodeMessages(r.Warnings),
		Errors:     encodeMessages(r.Errors),
	}
}

// ToDomain converts ERPRecordModel to a domain Record
func (m *ERPRecordModel) ToDomain() *erp.Record {
	return &erp.Record{
		Name:       m.Name,
		ExternalID: m.ExternalID,
		StoreID:    m.StoreID,
		Code:       m.Code,
		Fields:     decodeFields(m.Fields),
	}
}

// ERPRecordModelFromDomain converts a domain Record to its model
func ERPRecordModelFromDomain(doctype string, rec *erp.Record) *ERPRecordModel {
	return &ERPRecordModel{
		Doctype:    doctype,
		Name:       rec.Name,
		ExternalID: rec.ExternalID,
		StoreID:    rec.StoreID,
		Code:       rec.Code,
		Fields:     encodeFields(rec.Fields),
	}
}
