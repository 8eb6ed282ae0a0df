package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"atkform/internal/model"
	"atkform/internal/repository"
	"atkform/pkg/pagination"

	"go.uber.org/zap"
)

// --- DTOs ---

type ItemDTO struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Unit     string `json:"unit"`
}

type SubmitRequestDTO struct {
	Year               string    `json:"year"`
	WorkUnit           string    `json:"workUnit"`
	Location           string    `json:"location"`
	SubmissionDate     string    `json:"submissionDate"`
	RequesterName      string    `json:"requesterName"`
	RequesterNIP       string    `json:"requesterNIP"`
	RequesterSignature string    `json:"requesterSignature"`
	Items              []ItemDTO `json:"items"`
}

type VerifyDTO struct {
	VerifierName      string `json:"verifierName"`
	VerifierNIP       string `json:"verifierNIP"`
	VerifierSignature string `json:"verifierSignature"`
}

type ApproveDTO struct {
	SupervisorName        string `json:"supervisorName"`
	SupervisorNIP         string `json:"supervisorNIP"`
	SupervisorSignature   string `json:"supervisorSignature"`
	GoodsReleaseName      string `json:"goodsReleaseName"`
	GoodsReleaseNIP       string `json:"goodsReleaseNIP"`
	GoodsReleaseSignature string `json:"goodsReleaseSignature"`
}

type RequestFilter struct {
	Status string // pending, verified, approved or empty for all
	Year   int    // year of submissionDate, 0 for all
	Month  int    // month of submissionDate, 0 for all
	Page   int
	Limit  int
}

// --- Interface ---

type RequestService interface {
	Submit(ctx context.Context, req SubmitRequestDTO) (model.Request, error)
	Verify(ctx context.Context, id string, req VerifyDTO) (model.Request, error)
	Approve(ctx context.Context, id string, req ApproveDTO) (model.Request, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)
}

type requestService struct {
	store  repository.RequestAdapter
	app    *AppContext
	logger *zap.Logger
	now    func() time.Time
}

func NewRequestService(store repository.RequestAdapter, app *AppContext, logger *zap.Logger) RequestService {
	return &requestService{store: store, app: app, logger: logger, now: time.Now}
}

// --- Implementation ---

func (s *requestService) Submit(ctx context.Context, req SubmitRequestDTO) (model.Request, error) {
	now := s.now()

	rec := model.Request{
		Year:               strings.TrimSpace(req.Year),
		WorkUnit:           strings.TrimSpace(req.WorkUnit),
		Location:           strings.TrimSpace(req.Location),
		SubmissionDate:     strings.TrimSpace(req.SubmissionDate),
		RequesterName:      strings.TrimSpace(req.RequesterName),
		RequesterNIP:       strings.TrimSpace(req.RequesterNIP),
		RequesterSignature: strings.TrimSpace(req.RequesterSignature),
		Status:             model.StatusPending,
	}

	if rec.RequesterName == "" {
		return model.Request{}, invalid("requesterName", "requester name is required")
	}
	if rec.RequesterNIP == "" {
		return model.Request{}, invalid("requesterNIP", "requester NIP is required")
	}
	if rec.RequesterSignature == "" {
		return model.Request{}, invalid("requesterSignature", "requester signature is required")
	}
	if len(req.Items) == 0 {
		return model.Request{}, invalid("items", "at least one item is required")
	}
	for i, it := range req.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return model.Request{}, invalid(fmt.Sprintf("items[%d].name", i), "item name is required")
		}
		if it.Quantity < 1 {
			return model.Request{}, invalid(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1")
		}
		rec.Items = append(rec.Items, model.Item{Name: name, Quantity: it.Quantity, Unit: strings.TrimSpace(it.Unit)})
	}

	if rec.SubmissionDate == "" {
		rec.SubmissionDate = now.Format(model.DateLayout)
	} else if _, err := time.Parse(model.DateLayout, rec.SubmissionDate); err != nil {
		return model.Request{}, invalid("submissionDate", "date must be YYYY-MM-DD")
	}
	if rec.Year == "" {
		rec.Year = strconv.Itoa(now.Year())
	}

	existing, err := s.store.List(ctx)
	if err != nil {
		return model.Request{}, err
	}
	numbers := make([]string, 0, len(existing))
	for _, r := range existing {
		numbers = append(numbers, r.DocumentNumber)
	}
	settings := s.app.Settings()
	rec.DocumentNumber = NextDocumentNumber(numbers, now, settings.DocFormat, settings.DocPrefix)

	created, err := s.store.Create(ctx, &rec)
	if err != nil {
		return model.Request{}, err
	}
	s.logger.Info("request submitted",
		zap.String("id", created.ID),
		zap.String("document_number", created.DocumentNumber))
	return *created, nil
}

func (s *requestService) Verify(ctx context.Context, id string, req VerifyDTO) (model.Request, error) {
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return model.Request{}, err
	}
	if rec.Status != model.StatusPending {
		return model.Request{}, &StateError{Op: "verify", Current: rec.Status, Required: model.StatusPending}
	}

	name := strings.TrimSpace(req.VerifierName)
	nip := strings.TrimSpace(req.VerifierNIP)
	sig := strings.TrimSpace(req.VerifierSignature)
	switch {
	case name == "":
		return model.Request{}, invalid("verifierName", "verifier name is required")
	case nip == "":
		return model.Request{}, invalid("verifierNIP", "verifier NIP is required")
	case sig == "":
		return model.Request{}, invalid("verifierSignature", "verifier signature is required")
	}

	rec.Status = model.StatusVerified
	rec.VerifierName = name
	rec.VerifierNIP = nip
	rec.VerifierSignature = sig
	rec.VerifierDate = s.now().Format(model.DateLayout)

	updated, err := s.store.Update(ctx, &rec)
	if err != nil {
		return model.Request{}, err
	}
	s.logger.Info("request verified", zap.String("id", updated.ID), zap.String("verifier", name))
	return *updated, nil
}

func (s *requestService) Approve(ctx context.Context, id string, req ApproveDTO) (model.Request, error) {
	rec, err := s.lookup(ctx, id)
	if err != nil {
		return model.Request{}, err
	}
	if rec.Status != model.StatusVerified {
		return model.Request{}, &StateError{Op: "approve", Current: rec.Status, Required: model.StatusVerified}
	}

	supName := strings.TrimSpace(req.SupervisorName)
	supNIP := strings.TrimSpace(req.SupervisorNIP)
	supSig := strings.TrimSpace(req.SupervisorSignature)
	if supName == "" || supNIP == "" || supSig == "" {
		return model.Request{}, invalid("supervisor", "supervisor name, NIP and signature are required")
	}
	relName := strings.TrimSpace(req.GoodsReleaseName)
	relNIP := strings.TrimSpace(req.GoodsReleaseNIP)
	relSig := strings.TrimSpace(req.GoodsReleaseSignature)
	if relName == "" || relNIP == "" || relSig == "" {
		return model.Request{}, invalid("goodsRelease", "goods release name, NIP and signature are required")
	}

	date := s.now().Format(model.DateLayout)
	rec.Status = model.StatusApproved
	rec.SupervisorName = supName
	rec.SupervisorNIP = supNIP
	rec.SupervisorSignature = supSig
	rec.SupervisorDate = date
	rec.GoodsReleaseName = relName
	rec.GoodsReleaseNIP = relNIP
	rec.GoodsReleaseSignature = relSig
	rec.GoodsReleaseDate = date

	updated, err := s.store.Update(ctx, &rec)
	if err != nil {
		return model.Request{}, err
	}
	s.logger.Info("request approved", zap.String("id", updated.ID), zap.String("supervisor", supName))
	return *updated, nil
}

func (s *requestService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, &model.Request{ID: id}); err != nil {
		return err
	}
	s.logger.Info("request deleted", zap.String("id", id))
	return nil
}

func (s *requestService) Get(_ context.Context, id string) (model.Request, error) {
	rec, ok := s.app.Find(id)
	if !ok {
		return model.Request{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	return rec, nil
}

// List filters the current snapshot, newest first.
func (s *requestService) List(_ context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	matched := []model.Request{}
	for _, r := range s.app.Records() {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !inPeriod(r.SubmissionDate, filter.Year, filter.Month) {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	p := pagination.New(filter.Page, filter.Limit)
	start, end := p.Window(len(matched))
	return matched[start:end], int64(len(matched)), nil
}

// lookup reads the record fresh from the store so transitions see the stored status.
func (s *requestService) lookup(ctx context.Context, id string) (model.Request, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return model.Request{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return model.Request{}, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
}

// inPeriod reports whether a YYYY-MM-DD date falls in year/month. Zero matches anything.
func inPeriod(date string, year, month int) bool {
	if year == 0 && month == 0 {
		return true
	}
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return false
	}
	if year != 0 && d.Year() != year {
		return false
	}
	if month != 0 && int(d.Month()) != month {
		return false
	}
	return true
}
