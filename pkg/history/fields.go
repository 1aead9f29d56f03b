package history

import "time"

// Field is a filterable and sortable property of a HistoricEntity.
type Field string

// Column fields.
const (
	FieldID                Field = "id"
	FieldGroupingKey       Field = "grouping_key"
	FieldDefinitionKey     Field = "definition_key"
	FieldDefinitionName    Field = "definition_name"
	FieldDefinitionVersion Field = "definition_version"
	FieldTenantID          Field = "tenant_id"
	FieldBusinessKey       Field = "business_key"
	FieldState             Field = "state"
	FieldPriority          Field = "priority"
	FieldStartTime         Field = "start_time"
	FieldEndTime           Field = "end_time"
)

// Attribute fields, stored in HistoricEntity.Attributes.
const (
	FieldProcessInstanceID      Field = "process_instance_id"
	FieldRootProcessInstanceID  Field = "root_process_instance_id"
	FieldSuperProcessInstanceID Field = "super_process_instance_id"
	FieldRootDecisionInstanceID Field = "root_decision_instance_id"
	FieldBatchID                Field = "batch_id"
	FieldJobID                  Field = "job_id"
	FieldJobType                Field = "job_type"
	FieldActivityID             Field = "activity_id"
	FieldIncidentType           Field = "incident_type"
	FieldCauseIncidentID        Field = "cause_incident_id"
	FieldRootCauseIncidentID    Field = "root_cause_incident_id"
	FieldUserID                 Field = "user_id"
	FieldGroupID                Field = "group_id"
	FieldOperationType          Field = "operation_type"
	FieldJobExceptionMessage    Field = "job_exception_message"
)

// FieldType describes the value domain of a Field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeTime
)

var columnTypes = map[Field]FieldType{
	FieldID:                TypeString,
	FieldGroupingKey:       TypeString,
	FieldDefinitionKey:     TypeString,
	FieldDefinitionName:    TypeString,
	FieldDefinitionVersion: TypeInt,
	FieldTenantID:          TypeString,
	FieldBusinessKey:       TypeString,
	FieldState:             TypeString,
	FieldPriority:          TypeInt,
	FieldStartTime:         TypeTime,
	FieldEndTime:           TypeTime,
}

var attributeFields = map[Field]bool{
	FieldProcessInstanceID:      true,
	FieldRootProcessInstanceID:  true,
	FieldSuperProcessInstanceID: true,
	FieldRootDecisionInstanceID: true,
	FieldBatchID:                true,
	FieldJobID:                  true,
	FieldJobType:                true,
	FieldActivityID:             true,
	FieldIncidentType:           true,
	FieldCauseIncidentID:        true,
	FieldRootCauseIncidentID:    true,
	FieldUserID:                 true,
	FieldGroupID:                true,
	FieldOperationType:          true,
	FieldJobExceptionMessage:    true,
}

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	_, ok := columnTypes[f]
	return ok || attributeFields[f]
}

// IsAttribute reports whether f lives in the attribute map rather than a column.
func (f Field) IsAttribute() bool {
	return attributeFields[f]
}

// Type returns the value domain of f. Attributes are strings.
func (f Field) Type() FieldType {
	if t, ok := columnTypes[f]; ok {
		return t
	}
	return TypeString
}

// StringValue returns the string value of f on e. Empty values are reported
// as absent so that "no tenant" and "tenant not set" are the same thing.
func (e *HistoricEntity) StringValue(f Field) (string, bool) {
	var v string
	switch f {
	case FieldID:
		v = e.ID
	case FieldGroupingKey:
		v = e.GroupingKey
	case FieldDefinitionKey:
		v = e.DefinitionKey
	case FieldDefinitionName:
		v = e.DefinitionName
	case FieldTenantID:
		v = e.TenantID
	case FieldBusinessKey:
		v = e.BusinessKey
	case FieldState:
		v = e.State
	default:
		if !f.IsAttribute() {
			return "", false
		}
		v = e.Attributes[string(f)]
	}
	return v, v != ""
}

// IntValue returns the integer value of f on e.
func (e *HistoricEntity) IntValue(f Field) (int64, bool) {
	switch f {
	case FieldDefinitionVersion:
		return int64(e.DefinitionVersion), true
	case FieldPriority:
		return e.Priority, true
	}
	return 0, false
}

// TimeValue returns the time value of f on e.
func (e *HistoricEntity) TimeValue(f Field) (time.Time, bool) {
	switch f {
	case FieldStartTime:
		return e.StartTime, !e.StartTime.IsZero()
	case FieldEndTime:
		if e.EndTime == nil {
			return time.Time{}, false
		}
		return *e.EndTime, true
	}
	return time.Time{}, false
}

// Present reports whether f has a non-null value on e.
func (e *HistoricEntity) Present(f Field) bool {
	switch f.Type() {
	case TypeInt:
		_, ok := e.IntValue(f)
		return ok
	case TypeTime:
		_, ok := e.TimeValue(f)
		return ok
	default:
		_, ok := e.StringValue(f)
		return ok
	}
}
