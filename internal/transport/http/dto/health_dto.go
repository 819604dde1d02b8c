package dto

type HealthResponse struct {
	OK      bool   `json:"ok"`
	Storage string `json:"storage"`
}
