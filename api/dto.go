/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the quota domain model from the external API contract. The same types
  are decoded by api.Client, so every response DTO has a converter back to
  the domain type.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

WIRE FORMAT:
  - camelCase field names
  - Amounts are JSON numbers (days)
  - Dates are YYYY-MM-DD, timestamps RFC 3339

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest

  Balance:
    LeaveBalanceDTO, TypeDetailDTO, QuotaForTypeDTO

  Rules:
    factory.TransferRuleJSON, factory.CarryOverRuleJSON, factory.SpecialPeriodJSON

  Transfers:
    TransferRequestDTO, TransferSimulationDTO, TransferResultDTO, TransferRecordDTO

  Carry-overs:
    CarryOverRequestDTO, CarryOverCalculationDTO, CarryOverResultDTO, CarryOverRecordDTO

  Reports:
    ReportRequest, TransferReportDTO, StatisticsDTO, QuotaSummaryDTO, DashboardDTO

  Scenarios:
    ScenarioDTO

VALIDATION:
  Validation is done in handlers and in the quota package, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - client.go: Decodes these types
  - factory/rules.go: Rule JSON types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"

	"github.com/warp/leave-quota/factory"
	"github.com/warp/leave-quota/generic"
	"github.com/warp/leave-quota/quota"
	"github.com/warp/leave-quota/store/sqlite"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	HireDate   string `json:"hireDate,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

// CreateEmployeeRequest creates an employee and optionally grants the
// yearly allowances, keyed by leave type code.
type CreateEmployeeRequest struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Department string             `json:"department"`
	HireDate   string             `json:"hireDate"`
	Year       int                `json:"year,omitempty"`
	Allowances map[string]float64 `json:"allowances,omitempty"`
}

func toEmployeeDTO(e sqlite.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         e.ID,
		Name:       e.Name,
		Email:      e.Email,
		Department: e.Department,
		HireDate:   factory.FormatDate(e.HireDate),
		CreatedAt:  formatTimestamp(e.CreatedAt),
	}
}

// =============================================================================
// BALANCES
// =============================================================================

// TypeDetailDTO is the per-type breakdown of a balance.
type TypeDetailDTO struct {
	Allowance float64 `json:"allowance"`
	Used      float64 `json:"used"`
	Pending   float64 `json:"pending"`
	Remaining float64 `json:"remaining"`
}

// LeaveBalanceDTO is a user's quota for one year.
type LeaveBalanceDTO struct {
	UserID              string                   `json:"userId"`
	Year                int                      `json:"year"`
	InitialAllowance    float64                  `json:"initialAllowance"`
	AdditionalAllowance float64                  `json:"additionalAllowance"`
	DetailsByType       map[string]TypeDetailDTO `json:"detailsByType"`
}

// ToLeaveBalanceDTO renders a balance for the wire.
func ToLeaveBalanceDTO(b quota.LeaveBalance) LeaveBalanceDTO {
	dto := LeaveBalanceDTO{
		UserID:              string(b.UserID),
		Year:                b.Year,
		InitialAllowance:    b.InitialAllowance.Float64(),
		AdditionalAllowance: b.AdditionalAllowance.Float64(),
		DetailsByType:       make(map[string]TypeDetailDTO, len(b.DetailsByType)),
	}
	for t, d := range b.DetailsByType {
		dto.DetailsByType[string(t)] = TypeDetailDTO{
			Allowance: d.Allowance.Float64(),
			Used:      d.Used.Float64(),
			Pending:   d.Pending.Float64(),
			Remaining: b.Remaining(t).Float64(),
		}
	}
	return dto
}

// ToBalance converts back to the domain type. Remaining is derived, not read.
func (dto LeaveBalanceDTO) ToBalance() quota.LeaveBalance {
	b := quota.NewLeaveBalance(generic.EntityID(dto.UserID), dto.Year)
	b.InitialAllowance = generic.Days(dto.InitialAllowance)
	b.AdditionalAllowance = generic.Days(dto.AdditionalAllowance)
	for code, d := range dto.DetailsByType {
		b.DetailsByType[quota.LeaveType(code)] = quota.TypeDetail{
			Allowance: generic.Days(d.Allowance),
			Used:      generic.Days(d.Used),
			Pending:   generic.Days(d.Pending),
		}
	}
	return b
}

// QuotaForTypeDTO is one balance line of a summary.
type QuotaForTypeDTO struct {
	LeaveType string  `json:"leaveType"`
	Total     float64 `json:"total"`
	Used      float64 `json:"used"`
	Pending   float64 `json:"pending"`
	Remaining float64 `json:"remaining"`
}

func toQuotaForTypeDTO(q quota.QuotaForType) QuotaForTypeDTO {
	return QuotaForTypeDTO{
		LeaveType: string(q.Type),
		Total:     q.Total.Float64(),
		Used:      q.Used.Float64(),
		Pending:   q.Pending.Float64(),
		Remaining: q.Remaining.Float64(),
	}
}

// AdjustRequest is a manual correction of an allowance.
type AdjustRequest struct {
	UserID    string  `json:"userId"`
	LeaveType string  `json:"leaveType"`
	Year      int     `json:"year,omitempty"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
	AdminID   string  `json:"adminId"`
}

// CalculateRequest asks whether requested days fit the quota.
type CalculateRequest struct {
	UserID        string  `json:"userId"`
	LeaveType     string  `json:"leaveType"`
	Year          int     `json:"year,omitempty"`
	RequestedDays float64 `json:"requestedDays"`
}

// AvailabilityDTO answers a CalculateRequest.
type AvailabilityDTO struct {
	LeaveType        string          `json:"leaveType"`
	Eligible         bool            `json:"eligible"`
	AvailableDays    float64         `json:"availableDays"`
	RequestedDays    float64         `json:"requestedDays"`
	RemainingAfter   float64         `json:"remainingAfter"`
	ExceededBy       float64         `json:"exceededBy,omitempty"`
	RequiresApproval bool            `json:"requiresApproval"`
	WarningLevel     string          `json:"warningLevel,omitempty"`
	Quota            QuotaForTypeDTO `json:"quota"`
	Message          string          `json:"message"`
}

// =============================================================================
// TRANSFERS
// =============================================================================

// TransferRequestDTO asks to move days between leave types.
type TransferRequestDTO struct {
	UserID      string  `json:"userId"`
	FromType    string  `json:"fromType"`
	ToType      string  `json:"toType"`
	Amount      float64 `json:"amount"`
	Year        int     `json:"year,omitempty"`
	IgnoreRules bool    `json:"ignoreRules,omitempty"`
	Comment     string  `json:"comment,omitempty"`
}

func toTransferRequestDTO(r quota.TransferRequest) TransferRequestDTO {
	return TransferRequestDTO{
		UserID:      string(r.UserID),
		FromType:    string(r.SourceType),
		ToType:      string(r.TargetType),
		Amount:      r.Amount.Float64(),
		Year:        r.Year,
		IgnoreRules: r.IgnoreRules,
		Comment:     r.Comment,
	}
}

// ToRequest validates codes and converts to the domain type.
func (dto TransferRequestDTO) ToRequest() (quota.TransferRequest, error) {
	source, err := quota.ParseLeaveType(dto.FromType)
	if err != nil {
		return quota.TransferRequest{}, err
	}
	target, err := quota.ParseLeaveType(dto.ToType)
	if err != nil {
		return quota.TransferRequest{}, err
	}
	return quota.TransferRequest{
		UserID:      generic.EntityID(dto.UserID),
		SourceType:  source,
		TargetType:  target,
		Amount:      generic.Days(dto.Amount),
		Year:        dto.Year,
		IgnoreRules: dto.IgnoreRules,
		Comment:     dto.Comment,
	}, nil
}

// TransferSimulationDTO is the outcome of evaluating a transfer.
type TransferSimulationDTO struct {
	IsValid          bool                      `json:"isValid"`
	SourceAmount     float64                   `json:"sourceAmount"`
	TargetAmount     float64                   `json:"targetAmount"`
	SourceRemaining  float64                   `json:"sourceRemaining"`
	TargetTotal      float64                   `json:"targetTotal"`
	Ratio            float64                   `json:"ratio"`
	Capped           bool                      `json:"capped,omitempty"`
	RequiresApproval bool                      `json:"requiresApproval"`
	AppliedRule      *factory.TransferRuleJSON `json:"appliedRule,omitempty"`
	Message          string                    `json:"message"`
	Codes            []string                  `json:"codes,omitempty"`
}

// ToTransferSimulationDTO renders a simulation with its localized message.
func ToTransferSimulationDTO(s quota.TransferSimulation, message string) TransferSimulationDTO {
	dto := TransferSimulationDTO{
		IsValid:          s.Valid,
		SourceAmount:     s.SourceAmount.Float64(),
		TargetAmount:     s.TargetAmount.Float64(),
		SourceRemaining:  s.SourceRemaining.Float64(),
		TargetTotal:      s.TargetTotal.Float64(),
		Ratio:            s.AppliedRatio.InexactFloat64(),
		Capped:           s.Capped,
		RequiresApproval: s.RequiresApproval,
		Message:          message,
		Codes:            codesFor(s.Reason),
	}
	if s.AppliedRule != nil {
		rj := factory.TransferRuleToJSON(*s.AppliedRule)
		dto.AppliedRule = &rj
	}
	return dto
}

// ToSimulation converts back to the domain type. Notices are not carried
// over the wire; the reason is rebuilt from the codes.
func (dto TransferSimulationDTO) ToSimulation(req quota.TransferRequest) quota.TransferSimulation {
	s := quota.TransferSimulation{
		Request:          req,
		Valid:            dto.IsValid,
		SourceAmount:     generic.Days(dto.SourceAmount),
		TargetAmount:     generic.Days(dto.TargetAmount),
		SourceRemaining:  generic.Days(dto.SourceRemaining),
		TargetTotal:      generic.Days(dto.TargetTotal),
		AppliedRatio:     decimal.NewFromFloat(dto.Ratio),
		Capped:           dto.Capped,
		RequiresApproval: dto.RequiresApproval,
		Reason:           errorFromCodes(dto.Codes, dto.Message),
	}
	if dto.AppliedRule != nil {
		if r, err := dto.AppliedRule.ToRule(); err == nil {
			s.AppliedRule = &r
		}
	}
	return s
}

// TransferResultDTO is returned by an executed transfer.
type TransferResultDTO struct {
	Success    bool                  `json:"success"`
	TransferID string                `json:"transferId,omitempty"`
	Status     string                `json:"status,omitempty"`
	Message    string                `json:"message"`
	Simulation TransferSimulationDTO `json:"simulation"`
}

// TransferRecordDTO is a persisted transfer request.
type TransferRecordDTO struct {
	ID           string  `json:"id"`
	UserID       string  `json:"userId"`
	UserName     string  `json:"userName,omitempty"`
	Department   string  `json:"department,omitempty"`
	FromType     string  `json:"fromType"`
	ToType       string  `json:"toType"`
	SourceAmount float64 `json:"sourceAmount"`
	TargetAmount float64 `json:"targetAmount"`
	Ratio        float64 `json:"ratio"`
	Status       string  `json:"status"`
	RuleID       string  `json:"ruleId,omitempty"`
	Comment      string  `json:"comment,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	ProcessedAt  string  `json:"processedAt,omitempty"`
	ProcessedBy  string  `json:"processedBy,omitempty"`
}

func ToTransferRecordDTO(r quota.TransferRecord) TransferRecordDTO {
	return TransferRecordDTO{
		ID:           r.ID,
		UserID:       string(r.UserID),
		UserName:     r.UserName,
		Department:   r.Department,
		FromType:     string(r.SourceType),
		ToType:       string(r.TargetType),
		SourceAmount: r.SourceAmount.Float64(),
		TargetAmount: r.TargetAmount.Float64(),
		Ratio:        r.Ratio.InexactFloat64(),
		Status:       string(r.Status),
		RuleID:       r.RuleID,
		Comment:      r.Comment,
		CreatedAt:    formatTimestamp(r.CreatedAt),
		ProcessedAt:  formatTimestamp(r.ProcessedAt),
		ProcessedBy:  r.ProcessedBy,
	}
}

func ToTransferRecordDTOs(rs []quota.TransferRecord) []TransferRecordDTO {
	out := make([]TransferRecordDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToTransferRecordDTO(r))
	}
	return out
}

// ToRecord converts back to the domain type.
func (dto TransferRecordDTO) ToRecord() quota.TransferRecord {
	return quota.TransferRecord{
		ID:           dto.ID,
		UserID:       generic.EntityID(dto.UserID),
		UserName:     dto.UserName,
		Department:   dto.Department,
		SourceType:   quota.LeaveType(dto.FromType),
		TargetType:   quota.LeaveType(dto.ToType),
		SourceAmount: generic.Days(dto.SourceAmount),
		TargetAmount: generic.Days(dto.TargetAmount),
		Ratio:        decimal.NewFromFloat(dto.Ratio),
		Status:       quota.Status(dto.Status),
		RuleID:       dto.RuleID,
		Comment:      dto.Comment,
		CreatedAt:    parseTimestamp(dto.CreatedAt),
		ProcessedAt:  parseTimestamp(dto.ProcessedAt),
		ProcessedBy:  dto.ProcessedBy,
	}
}

// DecisionRequest approves or rejects a pending request. Approve is only
// read by the /process aliases; /approve and /reject imply it.
type DecisionRequest struct {
	Approve     *bool  `json:"approve,omitempty"`
	ProcessedBy string `json:"processedBy"`
	Comment     string `json:"comment,omitempty"`
}

// =============================================================================
// CARRY-OVERS
// =============================================================================

// CarryOverRequestDTO asks to carry days into the next year.
type CarryOverRequestDTO struct {
	UserID    string  `json:"userId"`
	LeaveType string  `json:"leaveType"`
	FromYear  int     `json:"fromYear"`
	ToYear    int     `json:"toYear,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Comment   string  `json:"comment,omitempty"`
}

func toCarryOverRequestDTO(r quota.CarryOverRequest) CarryOverRequestDTO {
	return CarryOverRequestDTO{
		UserID:    string(r.UserID),
		LeaveType: string(r.LeaveType),
		FromYear:  r.FromYear,
		ToYear:    r.ToYear,
		Amount:    r.Amount.Float64(),
		Comment:   r.Comment,
	}
}

// ToRequest validates codes and converts to the domain type.
func (dto CarryOverRequestDTO) ToRequest() (quota.CarryOverRequest, error) {
	t, err := quota.ParseLeaveType(dto.LeaveType)
	if err != nil {
		return quota.CarryOverRequest{}, err
	}
	return quota.CarryOverRequest{
		UserID:    generic.EntityID(dto.UserID),
		LeaveType: t,
		FromYear:  dto.FromYear,
		ToYear:    dto.ToYear,
		Amount:    generic.Days(dto.Amount),
		Comment:   dto.Comment,
	}, nil
}

// CarryOverCalculationDTO is the outcome of evaluating a carry-over.
type CarryOverCalculationDTO struct {
	OriginalRemaining    float64                    `json:"originalRemaining"`
	EligibleForCarryOver float64                    `json:"eligibleForCarryOver"`
	CarryOverAmount      float64                    `json:"carryOverAmount"`
	ExpiryDate           string                     `json:"expiryDate,omitempty"`
	Expires              bool                       `json:"expires"`
	RequiresApproval     bool                       `json:"requiresApproval"`
	AppliedRule          *factory.CarryOverRuleJSON `json:"appliedRule,omitempty"`
	Message              string                     `json:"message"`
	Codes                []string                   `json:"codes,omitempty"`
}

// ToCarryOverCalculationDTO renders a calculation with its localized message.
func ToCarryOverCalculationDTO(c quota.CarryOverCalculation, message string) CarryOverCalculationDTO {
	dto := CarryOverCalculationDTO{
		OriginalRemaining:    c.OriginalRemaining.Float64(),
		EligibleForCarryOver: c.EligibleForCarryOver.Float64(),
		CarryOverAmount:      c.CarryOverAmount.Float64(),
		ExpiryDate:           factory.FormatDate(c.ExpiryDate),
		Expires:              c.Expires,
		RequiresApproval:     c.RequiresApproval,
		Message:              message,
		Codes:                codesFor(c.Reason),
	}
	if c.AppliedRule != nil {
		rj := factory.CarryOverRuleToJSON(*c.AppliedRule)
		dto.AppliedRule = &rj
	}
	return dto
}

// ToCalculation converts back to the domain type.
func (dto CarryOverCalculationDTO) ToCalculation(req quota.CarryOverRequest) quota.CarryOverCalculation {
	expiry, _ := factory.ParseDate(dto.ExpiryDate)
	c := quota.CarryOverCalculation{
		Request:              req,
		OriginalRemaining:    generic.Days(dto.OriginalRemaining),
		EligibleForCarryOver: generic.Days(dto.EligibleForCarryOver),
		CarryOverAmount:      generic.Days(dto.CarryOverAmount),
		ExpiryDate:           expiry,
		Expires:              dto.Expires,
		RequiresApproval:     dto.RequiresApproval,
		Reason:               errorFromCodes(dto.Codes, dto.Message),
	}
	if dto.AppliedRule != nil {
		if r, err := dto.AppliedRule.ToRule(); err == nil {
			c.AppliedRule = &r
		}
	}
	return c
}

// CarryOverResultDTO is returned by an executed carry-over.
type CarryOverResultDTO struct {
	Success     bool                    `json:"success"`
	CarryOverID string                  `json:"carryOverId,omitempty"`
	Status      string                  `json:"status,omitempty"`
	Message     string                  `json:"message"`
	Calculation CarryOverCalculationDTO `json:"calculation"`
}

// CarryOverRecordDTO is a persisted carry-over request.
type CarryOverRecordDTO struct {
	ID              string  `json:"id"`
	UserID          string  `json:"userId"`
	LeaveType       string  `json:"leaveType"`
	FromYear        int     `json:"fromYear"`
	ToYear          int     `json:"toYear"`
	RequestedAmount float64 `json:"requestedAmount"`
	CarriedAmount   float64 `json:"carriedAmount"`
	ExpiryDate      string  `json:"expiryDate,omitempty"`
	Status          string  `json:"status"`
	RuleID          string  `json:"ruleId,omitempty"`
	Comment         string  `json:"comment,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	ProcessedAt     string  `json:"processedAt,omitempty"`
	ProcessedBy     string  `json:"processedBy,omitempty"`
}

func ToCarryOverRecordDTO(r quota.CarryOverRecord) CarryOverRecordDTO {
	return CarryOverRecordDTO{
		ID:              r.ID,
		UserID:          string(r.UserID),
		LeaveType:       string(r.LeaveType),
		FromYear:        r.FromYear,
		ToYear:          r.ToYear,
		RequestedAmount: r.RequestedAmount.Float64(),
		CarriedAmount:   r.CarriedAmount.Float64(),
		ExpiryDate:      factory.FormatDate(r.ExpiryDate),
		Status:          string(r.Status),
		RuleID:          r.RuleID,
		Comment:         r.Comment,
		CreatedAt:       formatTimestamp(r.CreatedAt),
		ProcessedAt:     formatTimestamp(r.ProcessedAt),
		ProcessedBy:     r.ProcessedBy,
	}
}

func ToCarryOverRecordDTOs(rs []quota.CarryOverRecord) []CarryOverRecordDTO {
	out := make([]CarryOverRecordDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToCarryOverRecordDTO(r))
	}
	return out
}

// NewTransferResultDTO renders an executed transfer. An empty result
// message falls back to the simulation's notices.
func NewTransferResultDTO(r quota.TransferResult, p *message.Printer) TransferResultDTO {
	msg := r.Message
	if msg == "" {
		msg = r.Simulation.Message(p)
	}
	return TransferResultDTO{
		Success:    r.Success,
		TransferID: r.TransferID,
		Status:     string(r.Status),
		Message:    msg,
		Simulation: ToTransferSimulationDTO(r.Simulation, msg),
	}
}

// NewCarryOverResultDTO renders an executed carry-over.
func NewCarryOverResultDTO(r quota.CarryOverResult, p *message.Printer) CarryOverResultDTO {
	msg := r.Message
	if msg == "" {
		msg = r.Calculation.Message(p)
	}
	return CarryOverResultDTO{
		Success:     r.Success,
		CarryOverID: r.CarryOverID,
		Status:      string(r.Status),
		Message:     msg,
		Calculation: ToCarryOverCalculationDTO(r.Calculation, msg),
	}
}


// ToRecord converts back to the domain type.
func (dto CarryOverRecordDTO) ToRecord() quota.CarryOverRecord {
	expiry, _ := factory.ParseDate(dto.ExpiryDate)
	return quota.CarryOverRecord{
		ID:              dto.ID,
		UserID:          generic.EntityID(dto.UserID),
		LeaveType:       quota.LeaveType(dto.LeaveType),
		FromYear:        dto.FromYear,
		ToYear:          dto.ToYear,
		RequestedAmount: generic.Days(dto.RequestedAmount),
		CarriedAmount:   generic.Days(dto.CarriedAmount),
		ExpiryDate:      expiry,
		Status:          quota.Status(dto.Status),
		RuleID:          dto.RuleID,
		Comment:         dto.Comment,
		CreatedAt:       parseTimestamp(dto.CreatedAt),
		ProcessedAt:     parseTimestamp(dto.ProcessedAt),
		ProcessedBy:     dto.ProcessedBy,
	}
}

// ProcessAnnualRequest triggers the annual carry-over.
type ProcessAnnualRequest struct {
	FromYear int `json:"fromYear"`
}

// CarryOverRunDTO is one annual carry-over run.
type CarryOverRunDTO struct {
	ID          string  `json:"id"`
	FromYear    int     `json:"fromYear"`
	ToYear      int     `json:"toYear"`
	Status      string  `json:"status"`
	Processed   int     `json:"processed"`
	CarriedOver float64 `json:"carriedOver"`
	Skipped     int     `json:"skipped"`
	Error       string  `json:"error,omitempty"`
	StartedAt   string  `json:"startedAt,omitempty"`
	CompletedAt string  `json:"completedAt,omitempty"`
}

// ToCarryOverRunDTO renders an annual run.
func ToCarryOverRunDTO(r sqlite.CarryOverRun) CarryOverRunDTO {
	dto := CarryOverRunDTO{
		ID:          r.ID,
		FromYear:    r.FromYear,
		ToYear:      r.ToYear,
		Status:      r.Status,
		Processed:   r.Processed,
		CarriedOver: r.CarriedOver.Float64(),
		Skipped:     r.Skipped,
		Error:       r.Error,
	}
	if r.StartedAt != nil {
		dto.StartedAt = formatTimestamp(*r.StartedAt)
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = formatTimestamp(*r.CompletedAt)
	}
	return dto
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a ledger entry in API responses.
type TransactionDTO struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	LeaveType   string            `json:"leaveType"`
	EffectiveAt string            `json:"effectiveAt"`
	Delta       float64           `json:"delta"`
	Unit        string            `json:"unit"`
	Type        string            `json:"type"`
	ReferenceID string            `json:"referenceId,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	CreatedBy   string            `json:"createdBy,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func toTransactionDTO(tx generic.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(tx.ID),
		UserID:      string(tx.EntityID),
		LeaveType:   tx.ResourceType.ResourceID(),
		EffectiveAt: tx.EffectiveAt.String(),
		Delta:       tx.Delta.Float64(),
		Unit:        string(tx.Delta.Unit),
		Type:        string(tx.Type),
		ReferenceID: tx.ReferenceID,
		Reason:      tx.Reason,
		CreatedBy:   tx.CreatedBy,
		Metadata:    tx.Metadata,
	}
}

func toTransactionDTOs(txs []generic.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

// ToTransaction converts back to the domain type.
func (dto TransactionDTO) ToTransaction() generic.Transaction {
	effective, _ := generic.ParseDate(dto.EffectiveAt)
	unit := generic.Unit(dto.Unit)
	if unit == "" {
		unit = generic.UnitDays
	}
	return generic.Transaction{
		ID:           generic.TransactionID(dto.ID),
		EntityID:     generic.EntityID(dto.UserID),
		ResourceType: generic.GetOrCreateResource(dto.LeaveType),
		EffectiveAt:  effective,
		Delta:        generic.NewAmount(dto.Delta, unit),
		Type:         generic.TransactionType(dto.Type),
		ReferenceID:  dto.ReferenceID,
		Reason:       dto.Reason,
		CreatedBy:    dto.CreatedBy,
		Metadata:     dto.Metadata,
	}
}

// =============================================================================
// REPORTS AND STATISTICS
// =============================================================================

// ReportRequest filters a transfer report. A non-empty format returns the
// rendered document instead of JSON.
type ReportRequest struct {
	StartDate   string   `json:"startDate,omitempty"`
	EndDate     string   `json:"endDate,omitempty"`
	LeaveTypes  []string `json:"leaveTypes,omitempty"`
	Departments []string `json:"departments,omitempty"`
	Statuses    []string `json:"statuses,omitempty"`
	GroupBy     string   `json:"groupBy,omitempty"`
	Format      string   `json:"format,omitempty"`
}

func toReportRequest(o quota.ReportOptions) ReportRequest {
	req := ReportRequest{
		StartDate:   factory.FormatDate(o.StartDate),
		EndDate:     factory.FormatDate(o.EndDate),
		Departments: o.Departments,
		GroupBy:     string(o.GroupBy),
		Format:      string(o.Format),
	}
	for _, t := range o.LeaveTypes {
		req.LeaveTypes = append(req.LeaveTypes, string(t))
	}
	for _, s := range o.Statuses {
		req.Statuses = append(req.Statuses, string(s))
	}
	return req
}

// ToOptions validates codes and converts to the domain type.
func (req ReportRequest) ToOptions() (quota.ReportOptions, error) {
	var (
		opts quota.ReportOptions
		err  error
	)
	if opts.StartDate, err = factory.ParseDate(req.StartDate); err != nil {
		return opts, err
	}
	if opts.EndDate, err = factory.ParseDate(req.EndDate); err != nil {
		return opts, err
	}
	for _, code := range req.LeaveTypes {
		t, err := quota.ParseLeaveType(code)
		if err != nil {
			return opts, err
		}
		opts.LeaveTypes = append(opts.LeaveTypes, t)
	}
	for _, code := range req.Statuses {
		s, err := quota.ParseStatus(code)
		if err != nil {
			return opts, err
		}
		opts.Statuses = append(opts.Statuses, s)
	}
	opts.Departments = req.Departments
	if opts.GroupBy, err = quota.ParseGroupBy(req.GroupBy); err != nil {
		return opts, err
	}
	if req.Format != "" {
		if opts.Format, err = quota.ParseExportFormat(req.Format); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

// ReportGroupDTO is one summary line.
type ReportGroupDTO struct {
	Key   string  `json:"key"`
	Label string  `json:"label,omitempty"`
	Count int     `json:"count"`
	Days  float64 `json:"days"`
}

// ReportSummaryDTO totals a transfer report.
type ReportSummaryDTO struct {
	TotalTransfers int              `json:"totalTransfers"`
	TotalDays      float64          `json:"totalDays"`
	ByLeaveType    []ReportGroupDTO `json:"byLeaveType,omitempty"`
	ByStatus       []ReportGroupDTO `json:"byStatus,omitempty"`
	ByDepartment   []ReportGroupDTO `json:"byDepartment,omitempty"`
	ByMonth        []ReportGroupDTO `json:"byMonth,omitempty"`
	ByUser         []ReportGroupDTO `json:"byUser,omitempty"`
}

// TransferReportDTO is the filtered rows with their summary.
type TransferReportDTO struct {
	Rows    []TransferRecordDTO `json:"rows"`
	Summary ReportSummaryDTO    `json:"summary"`
}

func toReportGroupDTOs(gs []quota.ReportGroup) []ReportGroupDTO {
	var out []ReportGroupDTO
	for _, g := range gs {
		out = append(out, ReportGroupDTO{Key: g.Key, Label: g.Label, Count: g.Count, Days: g.Days.Float64()})
	}
	return out
}

func fromReportGroupDTOs(gs []ReportGroupDTO) []quota.ReportGroup {
	var out []quota.ReportGroup
	for _, g := range gs {
		out = append(out, quota.ReportGroup{Key: g.Key, Label: g.Label, Count: g.Count, Days: generic.Days(g.Days)})
	}
	return out
}

func ToTransferReportDTO(r quota.TransferReport) TransferReportDTO {
	return TransferReportDTO{
		Rows:    ToTransferRecordDTOs(r.Rows),
		Summary: toReportSummaryDTO(r.Summary),
	}
}

func toReportSummaryDTO(s quota.ReportSummary) ReportSummaryDTO {
	return ReportSummaryDTO{
		TotalTransfers: s.TotalTransfers,
		TotalDays:      s.TotalDays.Float64(),
		ByLeaveType:    toReportGroupDTOs(s.ByLeaveType),
		ByStatus:       toReportGroupDTOs(s.ByStatus),
		ByDepartment:   toReportGroupDTOs(s.ByDepartment),
		ByMonth:        toReportGroupDTOs(s.ByMonth),
		ByUser:         toReportGroupDTOs(s.ByUser),
	}
}

// ToReport converts back to the domain type.
func (dto TransferReportDTO) ToReport() quota.TransferReport {
	r := quota.TransferReport{
		Summary: quota.ReportSummary{
			TotalTransfers: dto.Summary.TotalTransfers,
			TotalDays:      generic.Days(dto.Summary.TotalDays),
			ByLeaveType:    fromReportGroupDTOs(dto.Summary.ByLeaveType),
			ByStatus:       fromReportGroupDTOs(dto.Summary.ByStatus),
			ByDepartment:   fromReportGroupDTOs(dto.Summary.ByDepartment),
			ByMonth:        fromReportGroupDTOs(dto.Summary.ByMonth),
			ByUser:         fromReportGroupDTOs(dto.Summary.ByUser),
		},
	}
	for _, row := range dto.Rows {
		r.Rows = append(r.Rows, row.ToRecord())
	}
	return r
}

// TypeStatisticsDTO is the per-type line of StatisticsDTO.
type TypeStatisticsDTO struct {
	LeaveType    string  `json:"leaveType"`
	Initial      float64 `json:"initial"`
	Used         float64 `json:"used"`
	Remaining    float64 `json:"remaining"`
	TransfersIn  float64 `json:"transfersIn"`
	TransfersOut float64 `json:"transfersOut"`
	CarriedOver  float64 `json:"carriedOver"`
}

// StatisticsDTO aggregates quota states.
type StatisticsDTO struct {
	TotalInitial      float64             `json:"totalInitial"`
	TotalUsed         float64             `json:"totalUsed"`
	TotalPending      float64             `json:"totalPending"`
	TotalRemaining    float64             `json:"totalRemaining"`
	TotalTransfersIn  float64             `json:"totalTransfersIn"`
	TotalTransfersOut float64             `json:"totalTransfersOut"`
	TotalCarriedOver  float64             `json:"totalCarriedOver"`
	TotalExpired      float64             `json:"totalExpired"`
	UtilizationRate   float64             `json:"utilizationRate"`
	ByLeaveType       []TypeStatisticsDTO `json:"byLeaveType"`
}

func ToStatisticsDTO(s quota.QuotaStatistics) StatisticsDTO {
	dto := StatisticsDTO{
		TotalInitial:      s.TotalInitial.Float64(),
		TotalUsed:         s.TotalUsed.Float64(),
		TotalPending:      s.TotalPending.Float64(),
		TotalRemaining:    s.TotalRemaining.Float64(),
		TotalTransfersIn:  s.TotalTransfersIn.Float64(),
		TotalTransfersOut: s.TotalTransfersOut.Float64(),
		TotalCarriedOver:  s.TotalCarriedOver.Float64(),
		TotalExpired:      s.TotalExpired.Float64(),
		UtilizationRate:   s.UtilizationRate.InexactFloat64(),
		ByLeaveType:       []TypeStatisticsDTO{},
	}
	for _, l := range s.ByLeaveType {
		dto.ByLeaveType = append(dto.ByLeaveType, TypeStatisticsDTO{
			LeaveType:    string(l.LeaveType),
			Initial:      l.Initial.Float64(),
			Used:         l.Used.Float64(),
			Remaining:    l.Remaining.Float64(),
			TransfersIn:  l.TransfersIn.Float64(),
			TransfersOut: l.TransfersOut.Float64(),
			CarriedOver:  l.CarriedOver.Float64(),
		})
	}
	return dto
}

// ToStatistics converts back to the domain type.
func (dto StatisticsDTO) ToStatistics() quota.QuotaStatistics {
	s := quota.QuotaStatistics{
		TotalInitial:      generic.Days(dto.TotalInitial),
		TotalUsed:         generic.Days(dto.TotalUsed),
		TotalPending:      generic.Days(dto.TotalPending),
		TotalRemaining:    generic.Days(dto.TotalRemaining),
		TotalTransfersIn:  generic.Days(dto.TotalTransfersIn),
		TotalTransfersOut: generic.Days(dto.TotalTransfersOut),
		TotalCarriedOver:  generic.Days(dto.TotalCarriedOver),
		TotalExpired:      generic.Days(dto.TotalExpired),
		UtilizationRate:   decimal.NewFromFloat(dto.UtilizationRate),
	}
	for _, l := range dto.ByLeaveType {
		s.ByLeaveType = append(s.ByLeaveType, quota.TypeStatistics{
			LeaveType:    quota.LeaveType(l.LeaveType),
			Initial:      generic.Days(l.Initial),
			Used:         generic.Days(l.Used),
			Remaining:    generic.Days(l.Remaining),
			TransfersIn:  generic.Days(l.TransfersIn),
			TransfersOut: generic.Days(l.TransfersOut),
			CarriedOver:  generic.Days(l.CarriedOver),
		})
	}
	return s
}

// DashboardDTO is the HR overview of a year.
type DashboardDTO struct {
	Year        int              `json:"year"`
	Department  string           `json:"department,omitempty"`
	Utilization StatisticsDTO    `json:"utilizationStats"`
	Transfers   ReportSummaryDTO `json:"transfersStats"`
	CarriedOver float64          `json:"carriedOver"`
	Expired     float64          `json:"expired"`
	TopUsers    []ReportGroupDTO `json:"topUsers"`
}

// ToDashboardDTO converts a dashboard for the wire.
func ToDashboardDTO(d quota.Dashboard) DashboardDTO {
	top := toReportGroupDTOs(d.TopUsers)
	if top == nil {
		top = []ReportGroupDTO{}
	}
	return DashboardDTO{
		Year:        d.Year,
		Department:  d.Department,
		Utilization: ToStatisticsDTO(d.Utilization),
		Transfers:   toReportSummaryDTO(d.Transfers),
		CarriedOver: d.CarriedOver.Float64(),
		Expired:     d.Expired.Float64(),
		TopUsers:    top,
	}
}

// EnhancedQuotaStateDTO is the per-type view of a user's quota.
type EnhancedQuotaStateDTO struct {
	Type                string               `json:"type"`
	Total               float64              `json:"total"`
	Used                float64              `json:"used"`
	Pending             float64              `json:"pending"`
	Remaining           float64              `json:"remaining"`
	TotalCarriedOver    float64              `json:"totalCarriedOver"`
	TotalExpired        float64              `json:"totalExpired"`
	TotalTransferredIn  float64              `json:"totalTransferredIn"`
	TotalTransferredOut float64              `json:"totalTransferredOut"`
	CarriedOverItems    []CarriedOverItemDTO `json:"carriedOverItems,omitempty"`
	TransferItems       []TransferItemDTO    `json:"transferItems,omitempty"`
	ExpiringCarryOver   *ExpiringDTO         `json:"expiringCarryOver,omitempty"`
}

// CarriedOverItemDTO is one carry-over batch credited to the year.
type CarriedOverItemDTO struct {
	FromYear   int     `json:"fromYear"`
	Amount     float64 `json:"amount"`
	ExpiryDate string  `json:"expiryDate,omitempty"`
}

// TransferItemDTO is one transfer seen from a single leave type.
type TransferItemDTO struct {
	Direction   string  `json:"direction"`
	RelatedType string  `json:"relatedType"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}

// ExpiringDTO is the nearest carried batch about to expire.
type ExpiringDTO struct {
	Amount          float64 `json:"amount"`
	ExpiryDate      string  `json:"expiryDate"`
	DaysUntilExpiry int     `json:"daysUntilExpiry"`
}

func toEnhancedQuotaStateDTOs(states []quota.EnhancedQuotaState) []EnhancedQuotaStateDTO {
	out := make([]EnhancedQuotaStateDTO, 0, len(states))
	for _, s := range states {
		dto := EnhancedQuotaStateDTO{
			Type:                string(s.Type),
			Total:               s.Total.Float64(),
			Used:                s.Used.Float64(),
			Pending:             s.Pending.Float64(),
			Remaining:           s.Remaining.Float64(),
			TotalCarriedOver:    s.TotalCarriedOver.Float64(),
			TotalExpired:        s.TotalExpired.Float64(),
			TotalTransferredIn:  s.TotalTransferredIn.Float64(),
			TotalTransferredOut: s.TotalTransferredOut.Float64(),
		}
		for _, c := range s.CarriedOverItems {
			dto.CarriedOverItems = append(dto.CarriedOverItems, CarriedOverItemDTO{
				FromYear: c.FromYear, Amount: c.Amount.Float64(), ExpiryDate: factory.FormatDate(c.ExpiryDate),
			})
		}
		for _, t := range s.TransferItems {
			dto.TransferItems = append(dto.TransferItems, TransferItemDTO{
				Direction: string(t.Direction), RelatedType: string(t.RelatedType),
				Amount: t.Amount.Float64(), Date: formatTimestamp(t.Date),
			})
		}
		if e := s.ExpiringCarryOver; e != nil {
			dto.ExpiringCarryOver = &ExpiringDTO{
				Amount: e.Amount.Float64(), ExpiryDate: factory.FormatDate(e.ExpiryDate), DaysUntilExpiry: e.DaysUntilExpiry,
			}
		}
		out = append(out, dto)
	}
	return out
}

// ExpiringAlertDTO flags a carry-over batch about to expire.
type ExpiringAlertDTO struct {
	CarryOver       CarryOverRecordDTO `json:"carryOver"`
	DaysUntilExpiry int                `json:"daysUntilExpiry"`
	Message         string             `json:"message"`
}

// QuotaSummaryDTO is a user's year at a glance.
type QuotaSummaryDTO struct {
	UserID            string               `json:"userId"`
	Year              int                  `json:"year"`
	Balances          []QuotaForTypeDTO    `json:"balances"`
	PendingTransfers  []TransferRecordDTO  `json:"pendingTransfers"`
	PendingCarryOvers []CarryOverRecordDTO `json:"pendingCarryOvers"`
	Expiring          []ExpiringAlertDTO   `json:"expiring"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ErrorResponse represents an error in API responses. Codes name the
// sentinel errors behind the failure so clients can rebuild them.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Codes   []string `json:"codes,omitempty"`
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
