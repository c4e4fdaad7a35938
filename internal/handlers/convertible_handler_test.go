package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"captable/internal/finance"
	"captable/internal/models"
	"captable/internal/pagination"
	"captable/internal/services"
	"captable/internal/uuid"
	"captable/internal/validator"
)

// --- mock services ---

type mockConvertibleService struct {
	createFn  func(ownerID, companyID string, input services.CreateInstrumentInput) (*models.ConvertibleInstrument, error)
	convertFn func(ownerID, companyID, instrumentID, fundingRoundID, shareClassID string, roundValuation decimal.Decimal) (*services.ConversionResult, error)
	getByIDFn func(ownerID, companyID, instrumentID string) (*services.InstrumentDetail, error)
}

func (m *mockConvertibleService) Create(ownerID, companyID string, input services.CreateInstrumentInput) (*models.ConvertibleInstrument, error) {
	if m.createFn != nil {
		return m.createFn(ownerID, companyID, input)
	}
	return &models.ConvertibleInstrument{}, nil
}

func (m *mockConvertibleService) List(_, _ string, _ services.InstrumentFilter, _ pagination.PageRequest) (*pagination.PageResponse[models.ConvertibleInstrument], *services.InstrumentSummary, error) {
	resp := pagination.NewPageResponse([]models.ConvertibleInstrument{}, 1, 20, 0)
	return &resp, &services.InstrumentSummary{}, nil
}

func (m *mockConvertibleService) GetByID(ownerID, companyID, instrumentID string) (*services.InstrumentDetail, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ownerID, companyID, instrumentID)
	}
	return &services.InstrumentDetail{ConvertibleInstrument: &models.ConvertibleInstrument{}}, nil
}

func (m *mockConvertibleService) GetInterestBreakdown(_, _, _ string) (*services.InterestBreakdown, error) {
	return &services.InterestBreakdown{}, nil
}

func (m *mockConvertibleService) GetScenarios(_, _, _ string, _ []decimal.Decimal) (*finance.ScenarioSet, error) {
	return &finance.ScenarioSet{}, nil
}

func (m *mockConvertibleService) Update(_, _, _ string, _ services.UpdateInstrumentInput) (*models.ConvertibleInstrument, error) {
	return &models.ConvertibleInstrument{}, nil
}

func (m *mockConvertibleService) Redeem(_, _, _ string, _ decimal.Decimal, _ string) (*models.ConvertibleInstrument, error) {
	return &models.ConvertibleInstrument{}, nil
}

func (m *mockConvertibleService) Cancel(_, _, _, _ string) (*models.ConvertibleInstrument, error) {
	return &models.ConvertibleInstrument{}, nil
}

func (m *mockConvertibleService) Convert(ownerID, companyID, instrumentID, fundingRoundID, shareClassID string, roundValuation decimal.Decimal) (*services.ConversionResult, error) {
	if m.convertFn != nil {
		return m.convertFn(ownerID, companyID, instrumentID, fundingRoundID, shareClassID, roundValuation)
	}
	return &services.ConversionResult{Instrument: &models.ConvertibleInstrument{}, Issuance: &models.ShareIssuance{}}, nil
}

func (m *mockConvertibleService) MarkMatured(_ time.Time) (int64, error) { return 0, nil }

func (m *mockConvertibleService) RefreshAccruedInterest(_ time.Time, _ int) (int, error) {
	return 0, nil
}

var _ services.ConvertibleServicer = (*mockConvertibleService)(nil)

type mockAuditService struct{}

func (m *mockAuditService) Log(_, _, _, _, _ string, _ map[string]interface{}) {}

var _ services.AuditServicer = (*mockAuditService)(nil)

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

const testUserID = "01912f68-4b2a-7cc9-8f2e-3d9a1b6c5e4f"

func setupConvertibleRouter(handler *ConvertibleHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/companies/:id/convertibles", handler.CreateInstrument)
	auth.GET("/companies/:id/convertibles", handler.GetInstruments)
	auth.GET("/companies/:id/convertibles/:instrumentId", handler.GetInstrument)
	auth.POST("/companies/:id/convertibles/:instrumentId/convert", handler.ConvertInstrument)
	auth.POST("/companies/:id/convertibles/:instrumentId/cancel", handler.CancelInstrument)
	return r
}

func injectUserID(uid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// --- tests ---

func TestConvertibleHandler_CreateInstrument(t *testing.T) {
	companyID := uuid.New()
	shareholderID := uuid.New()

	t.Run("returns 201 on success", func(t *testing.T) {
		svc := &mockConvertibleService{
			createFn: func(_, _ string, input services.CreateInstrumentInput) (*models.ConvertibleInstrument, error) {
				return &models.ConvertibleInstrument{
					Base:          models.Base{ID: uuid.New()},
					ShareholderID: input.ShareholderID,
					Principal:     input.Principal,
					Status:        models.StatusOutstanding,
				}, nil
			},
		}
		handler := NewConvertibleHandler(svc, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles",
			`{"shareholder_id":"`+shareholderID+`","principal":"100000","interest_rate":"0.10","issue_date":"2024-01-01T00:00:00Z","maturity_date":"2027-01-01T00:00:00Z","discount_rate":"0.20","valuation_cap":"5000000"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		inst := result["instrument"].(map[string]interface{})
		if inst["status"] != "OUTSTANDING" {
			t.Errorf("expected OUTSTANDING status, got %v", inst["status"])
		}
	})

	t.Run("rejects missing principal", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles",
			`{"shareholder_id":"`+shareholderID+`","interest_rate":"0.10","issue_date":"2024-01-01T00:00:00Z","maturity_date":"2027-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("rejects non-decimal principal", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles",
			`{"shareholder_id":"`+shareholderID+`","principal":"1e5x","interest_rate":"0.10","issue_date":"2024-01-01T00:00:00Z","maturity_date":"2027-01-01T00:00:00Z"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects invalid company id", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/not-a-uuid/convertibles", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestConvertibleHandler_ConvertInstrument(t *testing.T) {
	companyID := uuid.New()
	instrumentID := uuid.New()
	roundID := uuid.New()
	shareClassID := uuid.New()

	t.Run("returns 200 with conversion result", func(t *testing.T) {
		svc := &mockConvertibleService{
			convertFn: func(_, _, _, _, _ string, valuation decimal.Decimal) (*services.ConversionResult, error) {
				if !valuation.Equal(decimal.NewFromInt(10_000_000)) {
					t.Errorf("expected valuation 10000000, got %s", valuation)
				}
				return &services.ConversionResult{
					Instrument: &models.ConvertibleInstrument{Status: models.StatusConverted},
					Issuance:   &models.ShareIssuance{Shares: decimal.NewFromInt(24000)},
					Record:     models.ConversionRecord{Method: "CAP", SharesIssued: decimal.NewFromInt(24000)},
				}, nil
			},
		}
		handler := NewConvertibleHandler(svc, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles/"+instrumentID+"/convert",
			`{"funding_round_id":"`+roundID+`","share_class_id":"`+shareClassID+`","round_valuation":"10000000"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		conversion := result["conversion"].(map[string]interface{})
		record := conversion["record"].(map[string]interface{})
		if record["method"] != "CAP" {
			t.Errorf("expected CAP method, got %v", record["method"])
		}
	})

	t.Run("rejects invalid round id", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles/"+instrumentID+"/convert",
			`{"funding_round_id":"nope","share_class_id":"`+shareClassID+`","round_valuation":"10000000"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects missing valuation", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles/"+instrumentID+"/convert",
			`{"funding_round_id":"`+roundID+`","share_class_id":"`+shareClassID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestConvertibleHandler_CancelInstrument(t *testing.T) {
	companyID := uuid.New()
	instrumentID := uuid.New()

	t.Run("requires a reason", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "POST", "/companies/"+companyID+"/convertibles/"+instrumentID+"/cancel", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestConvertibleHandler_GetInstruments(t *testing.T) {
	companyID := uuid.New()

	t.Run("rejects unknown status filter", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "GET", "/companies/"+companyID+"/convertibles?status=FROZEN", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns summary alongside the page", func(t *testing.T) {
		handler := NewConvertibleHandler(&mockConvertibleService{}, &mockAuditService{})
		r := setupConvertibleRouter(handler)

		rec := doRequest(r, "GET", "/companies/"+companyID+"/convertibles", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if _, ok := result["summary"]; !ok {
			t.Error("expected summary object in listing response")
		}
	})
}
