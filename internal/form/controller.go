package form

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"zarab-collections/internal/domain"
	"zarab-collections/internal/imaging"
	"zarab-collections/internal/repository"
	"zarab-collections/internal/telemetry"

	"go.uber.org/zap"
)

// User-facing validation messages, checked in this order
const (
	MessageRequired   = "Please fill in all required fields"
	MessageImage      = "Please upload a product image"
	MessagePrice      = "Please enter a valid price"
	MessageCategory   = "Please select a valid category"
	MessageUnexpected = "An unexpected error occurred"
)

var (
	ErrSubmitInProgress = errors.New("a submission is already in progress")
	ErrUnknownSize      = errors.New("unknown size")
)

// State is the lifecycle position of the draft. Failed keeps its message
// and returns to Editing on the next change.
type State int

const (
	StateEmpty State = iota
	StateEditing
	StateValidating
	StateSubmitting
	StateSaved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSaved:
		return "saved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Store is the part of the catalog repository the form writes through
type Store interface {
	Create(ctx context.Context, input domain.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id int64, input domain.ProductInput) error
}

// Patch carries the text fields to change; nil fields are left alone
type Patch struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	Price       *string `json:"price" validate:"omitempty,max=32"`
	ImageURL    *string `json:"image_url" validate:"omitempty,max=2048"`
	Category    *string `json:"category" validate:"omitempty,max=64"`
	Collection  *string `json:"collection" validate:"omitempty,max=200"`
}

// Snapshot is a copy of the controller state for rendering
type Snapshot struct {
	State      string       `json:"state"`
	Mode       string       `json:"mode"`
	Draft      domain.Draft `json:"draft"`
	Error      string       `json:"error,omitempty"`
	Submitting bool         `json:"submitting"`
}

// Controller owns one draft product. It is safe for concurrent use; backend
// calls run outside the lock.
type Controller struct {
	mu      sync.Mutex
	store   Store
	logger  *zap.Logger
	onSaved func(ctx context.Context)

	state   State
	draft   domain.Draft
	message string
	// gen advances whenever a new draft replaces the current one
	gen uint64
}

// NewController creates an empty form. onSaved runs after every successful
// save, before the draft is discarded.
func NewController(store Store, logger *zap.Logger, onSaved func(ctx context.Context)) *Controller {
	return &Controller{
		store:   store,
		logger:  logger,
		onSaved: onSaved,
		state:   StateEmpty,
		draft:   domain.EmptyDraft(),
	}
}

// Load seeds the draft from an existing product
func (c *Controller) Load(p *domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	c.draft = domain.NewDraft(p)
	c.state = StateEditing
	c.message = ""
	c.gen++
	return nil
}

// Reset discards the draft. An outstanding submission keeps it until the
// write finishes.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	c.resetLocked()
	return nil
}

func (c *Controller) resetLocked() {
	c.draft = domain.EmptyDraft()
	c.state = StateEmpty
	c.message = ""
	c.gen++
}

// Apply changes the text fields named in p
func (c *Controller) Apply(p Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.draft.Name, p.Name)
	set(&c.draft.Description, p.Description)
	set(&c.draft.Price, p.Price)
	set(&c.draft.ImageURL, p.ImageURL)
	set(&c.draft.Category, p.Category)
	set(&c.draft.Collection, p.Collection)

	c.state = StateEditing
	return nil
}

// ToggleSize selects label, or deselects it when already selected
func (c *Controller) ToggleSize(label string) error {
	size, ok := domain.ParseSize(label)
	if !ok {
		return &domain.ValidationError{Field: "sizes", Reason: domain.ReasonSize, Message: "Unknown size " + label, Err: ErrUnknownSize}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	if c.draft.HasSize(size) {
		kept := c.draft.Sizes[:0]
		for _, s := range c.draft.Sizes {
			if s != size {
				kept = append(kept, s)
			}
		}
		c.draft.Sizes = kept
	} else {
		c.draft.Sizes = append(c.draft.Sizes, size)
	}

	c.state = StateEditing
	return nil
}

// SetImage stores an encoded image in the draft and clears a pending image error
func (c *Controller) SetImage(img imaging.EncodedImage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	c.draft.ImageData = img.DataURL
	if strings.Contains(strings.ToLower(c.message), "image") {
		c.message = ""
	}
	c.state = StateEditing
	return nil
}

// RemoveImage drops the inline image; the fallback URL is kept
func (c *Controller) RemoveImage() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	c.draft.ImageData = ""
	c.state = StateEditing
	return nil
}

// UploadImage ingests file and waits for its single outcome. A rejected file
// leaves the draft untouched and is retained as the form message.
func (c *Controller) UploadImage(ctx context.Context, file imaging.File) error {
	var result error

	<-imaging.Ingest(ctx, file, imaging.Callbacks{
		OnImage: func(img imaging.EncodedImage) {
			result = c.SetImage(img)
		},
		OnError: func(err error) {
			c.fail(err.Error())
			result = err
		},
	})

	return result
}

func (c *Controller) fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.message = message
	if c.state != StateSubmitting {
		c.state = StateFailed
	}
}

// Validate checks a draft and builds the record to persist. The first failing
// rule wins.
func Validate(d domain.Draft) (domain.ProductInput, error) {
	name := strings.TrimSpace(d.Name)
	description := strings.TrimSpace(d.Description)
	priceText := strings.TrimSpace(d.Price)
	category := strings.TrimSpace(d.Category)

	for _, field := range []struct{ name, value string }{
		{"name", name},
		{"description", description},
		{"price", priceText},
		{"category", category},
	} {
		if field.value == "" {
			return domain.ProductInput{}, &domain.ValidationError{Field: field.name, Reason: domain.ReasonRequired, Message: MessageRequired}
		}
	}

	if d.ImageData == "" && d.ImageURL == "" {
		return domain.ProductInput{}, &domain.ValidationError{Field: "image", Reason: domain.ReasonImage, Message: MessageImage}
	}

	price, err := parsePrice(priceText)
	if err != nil {
		return domain.ProductInput{}, &domain.ValidationError{Field: "price", Reason: domain.ReasonPrice, Message: MessagePrice, Err: err}
	}

	if !domain.IsValidCategory(category) {
		return domain.ProductInput{}, &domain.ValidationError{Field: "category", Reason: domain.ReasonCategory, Message: MessageCategory}
	}

	imageURL := d.ImageURL
	if d.ImageData != "" {
		imageURL = d.ImageData
	}

	return domain.ProductInput{
		Name:        name,
		Description: description,
		Price:       price,
		ImageURL:    imageURL,
		ImageData:   d.ImageData,
		Category:    category,
		Collection:  domain.CollectionValue(d.Collection),
		Sizes:       domain.NormalizeSizes(d.Sizes),
	}, nil
}

// MaxPrice is the largest value the NUMERIC(12,2) price column holds
const MaxPrice = 9999999999.99

var (
	errPriceFormat = errors.New("price must be a plain decimal with at most two fractional digits")
	errPriceRange  = errors.New("price is out of range")

	pricePattern = regexp.MustCompile(`^(?:[0-9]+(?:\.[0-9]{1,2})?|\.[0-9]{1,2})$`)
)

// parsePrice accepts plain non-negative decimals such as "4990", "34.9" or
// ".50". Exponents, hex floats, digit separators and signs are rejected.
func parsePrice(text string) (float64, error) {
	if !pricePattern.MatchString(text) {
		return 0, errPriceFormat
	}
	price, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if price > MaxPrice {
		return 0, errPriceRange
	}
	return price, nil
}

// Submit validates the draft and writes it: an update when the draft came
// from an existing product, a create otherwise.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateSubmitting {
		c.mu.Unlock()
		return ErrSubmitInProgress
	}

	c.state = StateValidating
	input, err := Validate(c.draft)
	if err != nil {
		c.state = StateFailed
		c.message = err.Error()
		c.mu.Unlock()
		return err
	}

	var id *int64
	if c.draft.ID != nil {
		v := *c.draft.ID
		id = &v
	}
	gen := c.gen
	c.state = StateSubmitting
	c.message = ""
	c.mu.Unlock()

	mode := "create"
	if id != nil {
		mode = "update"
		err = c.store.Update(ctx, *id, input)
	} else {
		_, err = c.store.Create(ctx, input)
	}

	if err != nil {
		telemetry.FormSubmissions.WithLabelValues(mode, "failed").Inc()
		c.logger.Warn("Product save failed", zap.String("mode", mode), zap.Error(err))

		c.mu.Lock()
		c.state = StateFailed
		c.message = failureMessage(err)
		c.mu.Unlock()
		return err
	}

	telemetry.FormSubmissions.WithLabelValues(mode, "saved").Inc()

	c.mu.Lock()
	c.state = StateSaved
	c.mu.Unlock()

	if c.onSaved != nil {
		c.onSaved(ctx)
	}

	c.mu.Lock()
	if c.gen == gen {
		c.resetLocked()
	}
	c.mu.Unlock()

	return nil
}

func failureMessage(err error) string {
	if domain.IsBackend(err) || errors.Is(err, repository.ErrProductNotFound) {
		return err.Error()
	}
	return MessageUnexpected
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft := c.draft
	if c.draft.ID != nil {
		id := *c.draft.ID
		draft.ID = &id
	}
	draft.Sizes = append([]domain.Size{}, c.draft.Sizes...)

	mode := "create"
	if !draft.IsNew() {
		mode = "update"
	}

	return Snapshot{
		State:      c.state.String(),
		Mode:       mode,
		Draft:      draft,
		Error:      c.message,
		Submitting: c.state == StateSubmitting,
	}
}

// Editing reports whether the draft came from an existing product
func (c *Controller) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.draft.IsNew()
}
