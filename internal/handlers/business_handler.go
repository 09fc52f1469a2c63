package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	apierrors "github.com/stwalsh4118/bizsearch/internal/errors"
	"github.com/stwalsh4118/bizsearch/internal/middleware"
	"github.com/stwalsh4118/bizsearch/internal/models"
	"github.com/stwalsh4118/bizsearch/internal/services"
)

// BusinessHandler handles business search and lookup requests.
type BusinessHandler struct {
	service services.BusinessService
}

// NewBusinessHandler creates a new BusinessHandler instance.
func NewBusinessHandler(service services.BusinessService) *BusinessHandler {
	return &BusinessHandler{
		service: service,
	}
}

// SearchRequest holds the path parameters of the search endpoint.
type SearchRequest struct {
	Name string `uri:"name" binding:"required,max=255"`
}

// LookupRequest holds the path parameters of the get-by-id endpoint.
type LookupRequest struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}

// SearchResponse is returned by the search endpoint. Data is always a list,
// empty when nothing was found.
type SearchResponse struct {
	Source string         `json:"source"`
	Data   []BusinessData `json:"data"`
}

// BusinessResponse is returned by the get-by-id endpoint.
type BusinessResponse struct {
	Business *BusinessData `json:"business"`
}

// BusinessData is the API representation of a stored or crawled business.
// Dates are rendered as YYYY-MM-DD.
type BusinessData struct {
	FilingDate             *string       `json:"filing_date"`
	Name                   string        `json:"name"`
	FilingNumber           string        `json:"filing_number"`
	Status                 string        `json:"status"`
	StateOfFormation       string        `json:"state_of_formation"`
	PrincipalAddress       string        `json:"principal_address"`
	MailingAddress         string        `json:"mailing_address"`
	RegisteredAgentName    string        `json:"registered_agent_name"`
	RegisteredAgentAddress string        `json:"registered_agent_address"`
	Officers               []OfficerData `json:"officers"`
	FilingHistory          []FilingData  `json:"filing_history"`
	ID                     int64         `json:"id,omitempty"`
}

// OfficerData is one officer or director of a business.
type OfficerData struct {
	Title   string `json:"title"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// FilingData is one entry of a business's filing history.
type FilingData struct {
	FilingDate  *string `json:"filing_date"`
	FilingType  string  `json:"filing_type"`
	DocumentURL string  `json:"document_url"`
}

// Search handles GET /api/v1/search/:name.
// Stored matches are returned with source "database"; otherwise the registry
// is crawled and the results are returned with source "crawler".
func (h *BusinessHandler) Search(c *gin.Context) {
	var req SearchRequest
	if !bindURI(c, &req) {
		return
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Info("Processing search request", map[string]interface{}{
			"name": req.Name,
		})
	}

	result, err := h.service.Search(c.Request.Context(), req.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuery):
			apierrors.BadRequest(c, err.Error(), nil)
		case errors.Is(err, services.ErrCrawlerUnavailable):
			apierrors.ServiceUnavailable(c, apierrors.ErrCrawlerUnavailable, "Business registry crawler is unavailable", err)
		default:
			apierrors.InternalServerError(c, "Failed to search businesses", err)
		}
		return
	}

	data := make([]BusinessData, 0, len(result.Businesses))
	for i := range result.Businesses {
		data = append(data, *mapBusinessToDTO(&result.Businesses[i]))
	}

	c.JSON(http.StatusOK, SearchResponse{
		Source: result.Source,
		Data:   data,
	})
}

// Get handles GET /api/v1/businesses/:id.
func (h *BusinessHandler) Get(c *gin.Context) {
	var req LookupRequest
	if !bindURI(c, &req) {
		return
	}

	business, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, services.ErrBusinessNotFound) {
			apierrors.NotFound(c, "Business not found")
			return
		}
		apierrors.InternalServerError(c, "Failed to query business", err)
		return
	}

	c.JSON(http.StatusOK, BusinessResponse{
		Business: mapBusinessToDTO(business),
	})
}

// bindURI binds path parameters into req and writes the error response on
// failure. It reports whether the handler should continue.
func bindURI(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindUri(req)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apierrors.ValidationError(c, validationErrors)
		return false
	}
	apierrors.BadRequest(c, "Invalid path parameters", nil)
	return false
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.DateOnly)
	return &s
}

// mapBusinessToDTO converts a Business model to a BusinessData DTO.
// Officers and FilingHistory are never nil in the output.
func mapBusinessToDTO(b *models.Business) *BusinessData {
	if b == nil {
		return nil
	}

	dto := &BusinessData{
		ID:                     b.ID,
		Name:                   b.Name,
		FilingNumber:           b.FilingNumber,
		Status:                 b.Status,
		FilingDate:             formatDate(b.FilingDate),
		StateOfFormation:       b.StateOfFormation,
		PrincipalAddress:       b.PrincipalAddress,
		MailingAddress:         b.MailingAddress,
		RegisteredAgentName:    b.RegisteredAgentName,
		RegisteredAgentAddress: b.RegisteredAgentAddress,
		Officers:               make([]OfficerData, 0, len(b.Officers)),
		FilingHistory:          make([]FilingData, 0, len(b.FilingHistory)),
	}
	for _, o := range b.Officers {
		dto.Officers = append(dto.Officers, OfficerData{
			Title:   o.Title,
			Name:    o.Name,
			Address: o.Address,
		})
	}
	for _, f := range b.FilingHistory {
		dto.FilingHistory = append(dto.FilingHistory, FilingData{
			FilingType:  f.FilingType,
			FilingDate:  formatDate(f.FilingDate),
			DocumentURL: f.DocumentURL,
		})
	}
	return dto
}
