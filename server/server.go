// Package server exposes the aggregation engine as a JSON API. Every view
// owns an independent focus state; requests against the same view are
// serialized.
package server

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zalepa/mortviz/aggregate"
	"github.com/zalepa/mortviz/bins"
	"github.com/zalepa/mortviz/dataset"
	"github.com/zalepa/mortviz/focus"
	"github.com/zalepa/mortviz/record"
)

var (
	ErrViewNotFound     = errors.New("view not found")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownNode      = errors.New("no first-level group with that key")
	ErrBadQuery         = errors.New("invalid query parameter")
)

const (
	// DefaultBuckets is the number of map shades when the request names none.
	DefaultBuckets = bins.DefaultCount
	// MaxBuckets bounds the bucket count a request may ask for.
	MaxBuckets = 256
)

type view struct {
	mu     sync.Mutex
	state  focus.State
	period *int
	opts   aggregate.Options
}

// Server holds the normalized records shared by all views.
type Server struct {
	records []record.Record
	fields  dataset.FieldMap
	log     zerolog.Logger

	mu    sync.RWMutex
	views map[string]*view
}

func New(records []record.Record, fields dataset.FieldMap, log zerolog.Logger) *Server {
	return &Server{
		records: records,
		fields:  fields,
		log:     log,
		views:   make(map[string]*view),
	}
}

// NewApp returns a fiber app with request logging and every route mounted.
func NewApp(s *Server) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(s.logRequests)
	s.Register(app)
	return app
}

func (s *Server) Register(r fiber.Router) {
	api := r.Group("/api")
	api.Get("/dimensions", s.Dimensions)
	api.Get("/periods", s.Periods)
	api.Get("/map", s.Map)

	api.Post("/views", s.CreateView)
	api.Delete("/views/:id", s.DeleteView)
	api.Post("/views/:id/dimensions/:name", s.ToggleDimension)
	api.Get("/views/:id/tree", s.Tree)
	api.Post("/views/:id/focus", s.ToggleFocus)
	api.Post("/views/:id/select", s.Select)
	api.Get("/views/:id/series", s.Series)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("took", time.Since(start)).
		Msg("request")
	return err
}

func (s *Server) Dimensions(c *fiber.Ctx) error {
	return c.JSON(DimensionsResponse{Dimensions: s.fields.DimensionNames()})
}

func (s *Server) Periods(c *fiber.Ctx) error {
	periods := record.Periods(s.records)
	if periods == nil {
		periods = []int{}
	}
	return c.JSON(PeriodsResponse{Periods: periods})
}

func (s *Server) CreateView(c *fiber.Ctx) error {
	id := uuid.NewString()
	s.mu.Lock()
	s.views[id] = &view{opts: aggregate.DefaultOptions()}
	s.mu.Unlock()

	s.log.Info().Str("view", id).Msg("view created")
	return c.Status(fiber.StatusCreated).JSON(CreateViewResponse{ID: id})
}

func (s *Server) DeleteView(c *fiber.Ctx) error {
	id := c.Params("id")
	s.mu.Lock()
	_, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()
	if !ok {
		return s.writeError(c, ErrViewNotFound)
	}

	s.log.Info().Str("view", id).Msg("view removed")
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) lookup(c *fiber.Ctx) (*view, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[c.Params("id")]
	if !ok {
		return nil, ErrViewNotFound
	}
	return v, nil
}

func (s *Server) ToggleDimension(c *fiber.Ctx) error {
	v, err := s.lookup(c)
	if err != nil {
		return s.writeError(c, err)
	}
	name := c.Params("name")
	dim, ok := s.fields.Dimension(name)
	if !ok {
		return s.writeError(c, fmt.Errorf("%w: %q", ErrUnknownDimension, name))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = v.state.ToggleDimension(dim)
	return c.JSON(snapshot(v.state))
}

// Tree applies the period, max and other query parameters to the view and
// returns its current tree.
func (s *Server) Tree(c *fiber.Ctx) error {
	v, err := s.lookup(c)
	if err != nil {
		return s.writeError(c, err)
	}
	period, hasPeriod, err := queryPeriod(c)
	if err != nil {
		return s.writeError(c, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	opts, err := queryOptions(c, v.opts)
	if err != nil {
		return s.writeError(c, err)
	}
	if hasPeriod {
		v.period = period
	}
	v.opts = opts
	return s.respondTree(c, v)
}

func (s *Server) ToggleFocus(c *fiber.Ctx) error {
	v, err := s.lookup(c)
	if err != nil {
		return s.writeError(c, err)
	}
	var req ToggleFocusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid_json"})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	root, err := s.tree(v)
	if err != nil {
		return s.writeError(c, err)
	}
	node, ok := root.Child(req.Key)
	if !ok {
		return s.writeError(c, fmt.Errorf("%w: %q", ErrUnknownNode, req.Key))
	}
	next, err := v.state.ToggleFocus(node)
	if err != nil {
		return s.writeError(c, err)
	}
	v.state = next
	return s.respondTree(c, v)
}

func (s *Server) Select(c *fiber.Ctx) error {
	v, err := s.lookup(c)
	if err != nil {
		return s.writeError(c, err)
	}
	var req SelectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid_json"})
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	root, err := s.tree(v)
	if err != nil {
		return s.writeError(c, err)
	}
	next, err := v.state.Select(root, req.Path)
	if err != nil {
		return s.writeError(c, err)
	}
	v.state = next
	return s.respondTree(c, v)
}

// Series returns the period series split by the view's first dimension.
// The view's period filter does not apply.
func (s *Server) Series(c *fiber.Ctx) error {
	v, err := s.lookup(c)
	if err != nil {
		return s.writeError(c, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	opts, err := queryOptions(c, v.opts)
	if err != nil {
		return s.writeError(c, err)
	}
	ts, next, err := v.state.Series(s.records, opts)
	if err != nil {
		return s.writeError(c, err)
	}
	v.state = next

	resp := SeriesResponse{
		Periods: ts.Periods,
		Series:  make([]SeriesLine, 0, len(ts.Keys)),
		Totals:  make([]float64, len(ts.Periods)),
		State:   snapshot(v.state),
	}
	if resp.Periods == nil {
		resp.Periods = []int{}
	}
	for _, k := range ts.Keys {
		resp.Series = append(resp.Series, SeriesLine{Key: k, Values: ts.Column(k)})
	}
	for i, p := range ts.Periods {
		resp.Totals[i] = ts.Total(p)
	}
	return c.JSON(resp)
}

// Map buckets one value per key of a dimension. Query parameters named
// after other dimensions filter records first, e.g. ?dim=state&sex=Female.
// Keys present elsewhere in the data but not after filtering are listed
// without a value.
func (s *Server) Map(c *fiber.Ctx) error {
	name := c.Query("dim")
	dim, ok := s.fields.Dimension(name)
	if !ok {
		return s.writeError(c, fmt.Errorf("%w: %q", ErrUnknownDimension, name))
	}
	count := DefaultBuckets
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return s.writeError(c, fmt.Errorf("%w: count must be an integer", ErrBadQuery))
		}
		if n > MaxBuckets {
			return s.writeError(c, fmt.Errorf("%w: count must be at most %d", ErrBadQuery, MaxBuckets))
		}
		count = n
	}
	period, _, err := queryPeriod(c)
	if err != nil {
		return s.writeError(c, err)
	}

	filter := make(record.Filter)
	for _, other := range s.fields.DimensionNames() {
		if other == name {
			continue
		}
		if raw := c.Query(other); raw != "" {
			filter[other] = record.CategoryKey(raw)
		}
	}
	keep := func(r record.Record) bool {
		if period != nil && (!r.HasPeriod || r.Period != *period) {
			return false
		}
		return filter.Match(r)
	}

	reduce := s.fields.Reduction()
	keys, values := aggregate.KeyValues(s.records, dim, keep, reduce)
	b, err := bins.Compute(values, count)
	if err != nil {
		return s.writeError(c, err)
	}

	resp := MapResponse{
		Dimension:  name,
		Period:     period,
		Filter:     filter,
		Reduction:  string(reduce),
		Boundaries: b.Boundaries,
		Entries:    make([]MapEntry, 0, len(keys)),
	}
	for i, k := range keys {
		e := MapEntry{Key: k}
		if idx, ok := b.Index(values[i]); ok {
			v := values[i]
			e.Value = &v
			e.Bucket = &idx
		}
		resp.Entries = append(resp.Entries, e)
	}
	return c.JSON(resp)
}

// tree aggregates the view's records. The caller holds v.mu.
func (s *Server) tree(v *view) (aggregate.Node, error) {
	recs := s.records
	if v.period != nil {
		recs = record.ForPeriod(recs, *v.period)
	}
	root, next, err := v.state.Aggregate(recs, v.opts)
	if err != nil {
		return aggregate.Node{}, err
	}
	v.state = next
	return root, nil
}

func (s *Server) respondTree(c *fiber.Ctx, v *view) error {
	root, err := s.tree(v)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(TreeResponse{
		Period:     v.period,
		Options:    v.opts,
		Tree:       root,
		Breadcrumb: v.state.Breadcrumb(root),
		State:      snapshot(v.state),
	})
}

func snapshot(st focus.State) StateResponse {
	keys, _ := st.Focus()
	return StateResponse{
		Dimensions: st.DimensionNames(),
		Focus:      keys,
		Path:       st.Path(),
	}
}

// queryPeriod reads the period parameter. An empty value or "all" means no
// period filter.
func queryPeriod(c *fiber.Ctx) (*int, bool, error) {
	raw := c.Query("period")
	if raw == "" {
		return nil, false, nil
	}
	if raw == "all" {
		return nil, true, nil
	}
	p, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false, fmt.Errorf("%w: period must be a year or \"all\"", ErrBadQuery)
	}
	return &p, true, nil
}

// queryOptions overrides base with the max and other parameters.
func queryOptions(c *fiber.Ctx, base aggregate.Options) (aggregate.Options, error) {
	opts := base
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return base, fmt.Errorf("%w: max must be an integer", ErrBadQuery)
		}
		if n < 1 {
			return base, aggregate.ErrInvalidMaxSegments
		}
		opts.MaxSegments = n
	}
	if raw := c.Query("other"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return base, fmt.Errorf("%w: other must be a boolean", ErrBadQuery)
		}
		opts.CollapseOther = b
	}
	return opts, nil
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrViewNotFound),
		errors.Is(err, ErrUnknownDimension):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, ErrBadQuery),
		errors.Is(err, ErrUnknownNode),
		errors.Is(err, aggregate.ErrInvalidMaxSegments),
		errors.Is(err, aggregate.ErrTooManyDimensions),
		errors.Is(err, focus.ErrNotFocusable),
		errors.Is(err, focus.ErrUnreachable),
		errors.Is(err, bins.ErrBucketCount):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	default:
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal_server_error",
		})
	}
}
