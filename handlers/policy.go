package handlers

import (
	"net/http"

	"github.com/cloudleakage/cloudleakage-api/providers/aws"
)

// GeneratePolicy returns the IAM policy document an operator should
// attach to the credentials they are about to connect.
func GeneratePolicy() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		handleJsonResponse(rw, http.StatusOK, aws.CostReadPolicy())
	})
}
