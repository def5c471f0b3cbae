package model

// ProcedureCode is immutable once referenced by a rate; importers create it
// on first sight.
type ProcedureCode struct {
	Code        string  `json:"procedure_code" db:"procedure_code"`
	Description string  `json:"description" db:"description"`
	CodeType    string  `json:"code_type" db:"code_type"`
	Category    *string `json:"category,omitempty" db:"category"`
	Subcategory *string `json:"subcategory,omitempty" db:"subcategory"`
}
