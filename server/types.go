package server

import "card-pricer/models"

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type batchRequest struct {
	Cards []models.CardQuery `json:"cards"`
}

type batchPrice struct {
	Card  models.CardQuery  `json:"card"`
	Price *models.CardPrice `json:"price"`
}

type batchResponse struct {
	models.BatchResult
	Prices []batchPrice `json:"prices"`
}
