package products

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricCreatedTotal        = "products_created_total"
	metricUpdatedTotal        = "products_updated_total"
	metricDeleteRequestsTotal = "products_delete_requests_total"
)

type Metrics struct {
	Created        prometheus.Counter
	Updated        prometheus.Counter
	DeleteRequests prometheus.Counter
}

// NewMetrics creates the service counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricCreatedTotal,
			Help: "Total number of products created",
		}),
		Updated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricUpdatedTotal,
			Help: "Total number of products updated",
		}),
		DeleteRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricDeleteRequestsTotal,
			Help: "Total number of successful delete requests, including ids that did not exist",
		}),
	}
	reg.MustRegister(m.Created, m.Updated, m.DeleteRequests)
	return m
}

type Option func(*Service)

// WithIDGenerator replaces the uuid v4 generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

type Service struct {
	store   Store
	logger  zerolog.Logger
	metrics *Metrics
	newID   func() string
	now     func() time.Time
}

func NewService(store Store, logger zerolog.Logger, metrics *Metrics, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  logger,
		metrics: metrics,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProduct validates input and stores it as a new product owned by userID.
func (s *Service) CreateProduct(ctx context.Context, userID string, input NewProduct) (Product, error) {
	if err := input.Validate(); err != nil {
		return Product{}, err
	}

	product := Product{
		ID:          s.newID(),
		CreatedAt:   s.now().UTC().Format(CreatedAtLayout),
		UserID:      userID,
		Name:        input.Name,
		ImageURL:    input.ImageURL,
		Description: input.Description,
		Price:       input.Price,
	}

	if err := s.store.Put(ctx, product); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("create product failed")
		return Product{}, errors.Trace(err)
	}

	s.metrics.Created.Inc()
	s.logger.Info().Str("product_id", product.ID).Str("user_id", userID).Msg("product created")
	return product, nil
}

// ListProductsByUser returns the products owned by userID, newest first.
// createdAt values are compared as strings; a non-string createdAt counts as "".
func (s *Service) ListProductsByUser(ctx context.Context, userID string) ([]Item, error) {
	all, err := s.store.Scan(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("list products failed")
		return nil, errors.Trace(err)
	}

	owned := make([]Item, 0)
	for _, item := range all {
		if item.Attr(attrUserID) == userID {
			owned = append(owned, item)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].Attr(attrCreatedAt) > owned[j].Attr(attrCreatedAt)
	})
	return owned, nil
}

// GetProduct returns every stored attribute of the product, including ones
// added by updates.
func (s *Service) GetProduct(ctx context.Context, id string) (Item, error) {
	item, found, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("get product failed")
		return nil, errors.Trace(err)
	}
	if !found {
		return nil, ErrProductNotFound
	}
	return item, nil
}

// UpdateProduct sets every field on the existing product and returns the
// updated attributes only. Field names are not restricted.
func (s *Service) UpdateProduct(ctx context.Context, id string, fields []Field) (map[string]interface{}, error) {
	expr, err := BuildUpdateExpression(fields)
	if err != nil {
		return nil, errors.Trace(err)
	}

	attributes, err := s.store.Update(ctx, id, expr)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("update product failed")
		return nil, errors.Trace(err)
	}

	s.metrics.Updated.Inc()
	s.logger.Info().Str("product_id", id).Int("fields", len(fields)).Msg("product updated")
	return attributes, nil
}

// DeleteProduct removes the product. Missing ids are not reported.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("delete product failed")
		return errors.Trace(err)
	}

	s.metrics.DeleteRequests.Inc()
	s.logger.Info().Str("product_id", id).Msg("product deleted")
	return nil
}
