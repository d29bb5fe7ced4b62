/*
client.go - REST client for the quota API

PURPOSE:
  Implements service.Backend over HTTP so the services (and quotactl) can
  run against a remote server exactly as they run against a local store.
  Requests and responses use the DTOs of dto.go.

ERRORS:
  - Transport failures wrap generic.ErrUnavailable (and the context error
    when the call was cancelled)
  - Non-2xx responses become *HTTPError, which unwraps to the sentinels
    named by the response codes, so errors.Is works across the wire

USAGE:
  client := api.NewClient("http://localhost:8080", api.WithTimeout(5*time.Second))
  mgmt := service.NewManagement(client)

SEE ALSO:
  - server.go: Routes called here
  - errors.go: HTTPError, code table
  - service/backend.go: The implemented interface
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/service"
)

const quotasPath = "/api/leaves/quotas"

// Client talks to a quota server.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ service.Backend = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// BALANCES
// =============================================================================

func (c *Client) LeaveBalance(ctx context.Context, userID generic.EntityID, year int) (quota.LeaveBalance, error) {
	var dto LeaveBalanceDTO
	q := url.Values{}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if err := c.do(ctx, http.MethodGet, quotasPath+"/employee/"+url.PathEscape(string(userID)), q, nil, &dto); err != nil {
		return quota.LeaveBalance{}, err
	}
	return dto.ToBalance(), nil
}

func (c *Client) AdjustBalance(ctx context.Context, a service.Adjustment) (quota.LeaveBalance, error) {
	var dto LeaveBalanceDTO
	body := AdjustRequest{
		UserID:    string(a.UserID),
		LeaveType: string(a.LeaveType),
		Year:      a.Year,
		Amount:    a.Amount.Float64(),
		Reason:    a.Reason,
		AdminID:   a.AdminID,
	}
	if err := c.do(ctx, http.MethodPost, quotasPath+"/adjust", nil, body, &dto); err != nil {
		return quota.LeaveBalance{}, err
	}
	return dto.ToBalance(), nil
}

// =============================================================================
// RULES
// =============================================================================

func (c *Client) TransferRules(ctx context.Context) ([]quota.TransferRule, error) {
	var dtos []factory.TransferRuleJSON
	if err := c.do(ctx, http.MethodGet, quotasPath+"/transfer-rules", nil, nil, &dtos); err != nil {
		return nil, err
	}
	rules := make([]quota.TransferRule, 0, len(dtos))
	for i, rj := range dtos {
		r, err := rj.ToRule()
		if err != nil {
			return nil, fmt.Errorf("transferRules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (c *Client) CarryOverRules(ctx context.Context) ([]quota.CarryOverRule, error) {
	var dtos []factory.CarryOverRuleJSON
	if err := c.do(ctx, http.MethodGet, quotasPath+"/carry-over-rules", nil, nil, &dtos); err != nil {
		return nil, err
	}
	rules := make([]quota.CarryOverRule, 0, len(dtos))
	for i, rj := range dtos {
		r, err := rj.ToRule()
		if err != nil {
			return nil, fmt.Errorf("carryOverRules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func (c *Client) SpecialPeriods(ctx context.Context) ([]quota.SpecialPeriodRule, error) {
	var dtos []factory.SpecialPeriodJSON
	if err := c.do(ctx, http.MethodGet, quotasPath+"/special-periods", nil, nil, &dtos); err != nil {
		return nil, err
	}
	periods := make([]quota.SpecialPeriodRule, 0, len(dtos))
	for i, pj := range dtos {
		p, err := pj.ToRule()
		if err != nil {
			return nil, fmt.Errorf("specialPeriods[%d]: %w", i, err)
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func (c *Client) SaveTransferRule(ctx context.Context, rule quota.TransferRule) (quota.TransferRule, error) {
	var saved factory.TransferRuleJSON
	method, path := savePath(quotasPath+"/transfer-rules", rule.ID)
	if err := c.do(ctx, method, path, nil, factory.TransferRuleToJSON(rule), &saved); err != nil {
		return quota.TransferRule{}, err
	}
	return saved.ToRule()
}

func (c *Client) DeleteTransferRule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, quotasPath+"/transfer-rules/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) SaveCarryOverRule(ctx context.Context, rule quota.CarryOverRule) (quota.CarryOverRule, error) {
	var saved factory.CarryOverRuleJSON
	method, path := savePath(quotasPath+"/carry-over-rules", rule.ID)
	if err := c.do(ctx, method, path, nil, factory.CarryOverRuleToJSON(rule), &saved); err != nil {
		return quota.CarryOverRule{}, err
	}
	return saved.ToRule()
}

func (c *Client) DeleteCarryOverRule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, quotasPath+"/carry-over-rules/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) SaveSpecialPeriod(ctx context.Context, rule quota.SpecialPeriodRule) (quota.SpecialPeriodRule, error) {
	var saved factory.SpecialPeriodJSON
	method, path := savePath(quotasPath+"/special-periods", rule.ID)
	if err := c.do(ctx, method, path, nil, factory.SpecialPeriodToJSON(rule), &saved); err != nil {
		return quota.SpecialPeriodRule{}, err
	}
	return saved.ToRule()
}

func (c *Client) DeleteSpecialPeriod(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, quotasPath+"/special-periods/"+url.PathEscape(id), nil, nil, nil)
}

// savePath creates with POST on the collection and replaces with PUT on
// the item.
func savePath(collection, id string) (string, string) {
	if id == "" {
		return http.MethodPost, collection
	}
	return http.MethodPut, collection + "/" + url.PathEscape(id)
}

// =============================================================================
// HISTORY
// =============================================================================

func (c *Client) TransferHistory(ctx context.Context, userID generic.EntityID) ([]quota.TransferRecord, error) {
	var dtos []TransferRecordDTO
	if err := c.do(ctx, http.MethodGet, quotasPath+"/transfers", userQuery(userID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]quota.TransferRecord, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.ToRecord())
	}
	return out, nil
}

func (c *Client) CarryOverHistory(ctx context.Context, userID generic.EntityID) ([]quota.CarryOverRecord, error) {
	var dtos []CarryOverRecordDTO
	if err := c.do(ctx, http.MethodGet, quotasPath+"/carry-overs", userQuery(userID), nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]quota.CarryOverRecord, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.ToRecord())
	}
	return out, nil
}

func (c *Client) Transactions(ctx context.Context, tq service.TransactionQuery) ([]generic.Transaction, error) {
	q := userQuery(tq.UserID)
	if tq.Year != 0 {
		q.Set("year", strconv.Itoa(tq.Year))
	}
	if tq.Type != "" {
		q.Set("type", string(tq.Type))
	}
	var dtos []TransactionDTO
	if err := c.do(ctx, http.MethodGet, quotasPath+"/transactions", q, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]generic.Transaction, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.ToTransaction())
	}
	return out, nil
}

func userQuery(userID generic.EntityID) url.Values {
	q := url.Values{}
	if userID != "" {
		q.Set("userId", string(userID))
	}
	return q
}

// =============================================================================
// REQUESTS
// =============================================================================

func (c *Client) SubmitTransfer(ctx context.Context, req quota.TransferRequest) (quota.TransferResult, error) {
	var dto TransferResultDTO
	if err := c.do(ctx, http.MethodPost, quotasPath+"/transfers", nil, toTransferRequestDTO(req), &dto); err != nil {
		return quota.TransferResult{}, err
	}
	return quota.TransferResult{
		Success:    dto.Success,
		TransferID: dto.TransferID,
		Status:     quota.Status(dto.Status),
		Simulation: dto.Simulation.ToSimulation(req),
		Message:    dto.Message,
	}, nil
}

func (c *Client) SubmitCarryOver(ctx context.Context, req quota.CarryOverRequest) (quota.CarryOverResult, error) {
	var dto CarryOverResultDTO
	if err := c.do(ctx, http.MethodPost, quotasPath+"/carry-overs", nil, toCarryOverRequestDTO(req), &dto); err != nil {
		return quota.CarryOverResult{}, err
	}
	return quota.CarryOverResult{
		Success:     dto.Success,
		CarryOverID: dto.CarryOverID,
		Status:      quota.Status(dto.Status),
		Calculation: dto.Calculation.ToCalculation(req),
		Message:     dto.Message,
	}, nil
}

func (c *Client) ProcessTransfer(ctx context.Context, d service.Decision) (quota.TransferRecord, error) {
	var dto TransferRecordDTO
	path := quotasPath + "/transfers/" + url.PathEscape(d.RequestID) + decisionSuffix(d)
	if err := c.do(ctx, http.MethodPost, path, nil, DecisionRequest{ProcessedBy: d.ProcessedBy, Comment: d.Comment}, &dto); err != nil {
		return quota.TransferRecord{}, err
	}
	return dto.ToRecord(), nil
}

func (c *Client) ProcessCarryOver(ctx context.Context, d service.Decision) (quota.CarryOverRecord, error) {
	var dto CarryOverRecordDTO
	path := quotasPath + "/carry-overs/" + url.PathEscape(d.RequestID) + decisionSuffix(d)
	if err := c.do(ctx, http.MethodPost, path, nil, DecisionRequest{ProcessedBy: d.ProcessedBy, Comment: d.Comment}, &dto); err != nil {
		return quota.CarryOverRecord{}, err
	}
	return dto.ToRecord(), nil
}

func decisionSuffix(d service.Decision) string {
	if d.Approve {
		return "/approve"
	}
	return "/reject"
}

// =============================================================================
// REPORTS
// =============================================================================

func (c *Client) TransferReport(ctx context.Context, opts quota.ReportOptions) (quota.TransferReport, error) {
	body := toReportRequest(opts)
	body.Format = ""
	var dto TransferReportDTO
	if err := c.do(ctx, http.MethodPost, quotasPath+"/transfers/report", nil, body, &dto); err != nil {
		return quota.TransferReport{}, err
	}
	return dto.ToReport(), nil
}

func (c *Client) ExportTransferReport(ctx context.Context, opts quota.ReportOptions) (service.Export, error) {
	format := opts.Format
	if format == "" {
		format = quota.ExportPDF
	}
	body := toReportRequest(opts)
	body.Format = string(format)

	resp, err := c.send(ctx, http.MethodPost, quotasPath+"/transfers/report", nil, body)
	if err != nil {
		return service.Export{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return service.Export{}, fmt.Errorf("%w: read report: %w", generic.ErrUnavailable, err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = format.ContentType()
	}
	return service.Export{Format: format, ContentType: contentType, Data: data}, nil
}

func (c *Client) Statistics(ctx context.Context, sq service.StatisticsQuery) (quota.QuotaStatistics, error) {
	q := userQuery(sq.UserID)
	if sq.Department != "" {
		q.Set("department", sq.Department)
	}
	if sq.Year != 0 {
		q.Set("year", strconv.Itoa(sq.Year))
	}
	var dto StatisticsDTO
	if err := c.do(ctx, http.MethodGet, quotasPath+"/statistics", q, nil, &dto); err != nil {
		return quota.QuotaStatistics{}, err
	}
	return dto.ToStatistics(), nil
}

// =============================================================================
// OPERATIONS
// =============================================================================

// ListEmployees returns every employee known to the server.
func (c *Client) ListEmployees(ctx context.Context) ([]EmployeeDTO, error) {
	var dtos []EmployeeDTO
	if err := c.do(ctx, http.MethodGet, "/api/employees", nil, nil, &dtos); err != nil {
		return nil, err
	}
	return dtos, nil
}

// ProcessAnnualCarryOver triggers the annual carry-over out of fromYear.
// Zero lets the server pick last year.
func (c *Client) ProcessAnnualCarryOver(ctx context.Context, fromYear int) (CarryOverRunDTO, error) {
	var dto CarryOverRunDTO
	err := c.do(ctx, http.MethodPost, quotasPath+"/carry-overs/process-annual", nil, ProcessAnnualRequest{FromYear: fromYear}, &dto)
	return dto, err
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do sends a JSON request and decodes the JSON response into out, which
// may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// send returns the response of a 2xx call. The caller closes the body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", generic.ErrUnavailable, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeHTTPError(resp)
	}
	return resp, nil
}

func decodeHTTPError(resp *http.Response) error {
	herr := &HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			herr.Message = body.Error
		}
		herr.Details = body.Details
		herr.Codes = body.Codes
	}
	return herr
}
