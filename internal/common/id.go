package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewQuotationID generates a unique quotation ID with the "cot_" prefix
func NewQuotationID() string {
	return "cot_" + uuid.New().String()
}

// NewItemID generates a unique quotation item ID with the "item_" prefix
func NewItemID() string {
	return "item_" + uuid.New().String()
}

// NewProductID generates a unique product ID with the "prod_" prefix
func NewProductID() string {
	return "prod_" + uuid.New().String()
}

// NewMissingItemID generates a unique missing-item ID with the "falt_" prefix
func NewMissingItemID() string {
	return "falt_" + uuid.New().String()
}

// NewSupplierID generates a unique supplier ID with the "forn_" prefix
func NewSupplierID() string {
	return "forn_" + uuid.New().String()
}

// NewReportID generates a unique report ID with the "rel_" prefix
func NewReportID() string {
	return "rel_" + uuid.New().String()
}
