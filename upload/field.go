// Package upload binds file upload fields to a storage transport. A field
// keeps an ordered list of entries, uploads dropped files concurrently and
// emits the settled locations to its owner whenever they change.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/i18n"
)

// ErrClosed is returned by Drop after Close.
var ErrClosed = errors.New("upload: field closed")

var validate = validator.New()

// Value is what a field emits: the settled locations in list order. A single
// value field holds at most one location; none means null.
type Value struct {
	Multiple  bool
	Locations []string
}

// Location returns the value of a single value field.
func (v Value) Location() (string, bool) {
	if len(v.Locations) == 0 {
		return "", false
	}
	return v.Locations[0], true
}

// IsNull reports whether a single value field holds nothing.
func (v Value) IsNull() bool { return !v.Multiple && len(v.Locations) == 0 }

// Options wires a field to its collaborators.
type Options struct {
	// PropertyKey, EntityID and Path feed the storage templates.
	PropertyKey string
	EntityID    string
	Path        string

	// Initial seeds the field with stored locations. Single value fields use
	// the first one.
	Initial []string

	// Storage is the upload transport. Required.
	Storage  StorageSource
	Notifier Notifier
	Logger   *zap.Logger

	FileNameBuilder    FileNameBuilder
	StoragePathBuilder StoragePathBuilder
	PostProcess        PostProcessFunc

	// OnChange receives every new value. Calls are serialized; OnChange may
	// read the field but mutations it makes are delivered after it returns.
	OnChange func(Value)

	// Disabled ignores drops, e.g. while the form is submitting.
	Disabled bool
	Size     PreviewSize
}

// Field is implemented by *SingleValueField and *MultiValueField.
type Field interface {
	Drop(ctx context.Context, files ...File) error
	Move(from, to int) bool
	Clear(location string) bool
	Remove(id string) bool
	Reset(locations ...string) bool
	Entries() []Entry
	Value() Value
	Multiple() bool
	HelpText() string
	Wait()
	Close()
}

var (
	_ Field = (*SingleValueField)(nil)
	_ Field = (*MultiValueField)(nil)
)

// NewField builds the field matching the property data type.
func NewField(prop firecms.Property, opts Options) (Field, error) {
	switch prop.DataType {
	case firecms.DataTypeString:
		return NewSingleValueField(prop, opts)
	case firecms.DataTypeArray:
		return NewMultiValueField(prop, opts)
	default:
		return nil, firecms.Errorf(firecms.CodeConfiguration, opts.PropertyKey,
			"storage fields bind to string or array properties, got %q", prop.DataType)
	}
}

// SingleValueField stores one file in a string property.
type SingleValueField struct{ *engine }

// NewSingleValueField validates prop and builds the field.
func NewSingleValueField(prop firecms.Property, opts Options) (*SingleValueField, error) {
	e, err := newEngine(prop, false, opts)
	if err != nil {
		return nil, err
	}
	return &SingleValueField{e}, nil
}

// Drop replaces the current entry with the first accepted file; the others
// are discarded.
func (f *SingleValueField) Drop(ctx context.Context, files ...File) error {
	files = f.accepted(files)
	if len(files) > 1 {
		files = files[:1]
	}
	return f.drop(ctx, files, true)
}

// Clear empties the field whatever location is given.
func (f *SingleValueField) Clear(string) bool {
	f.mu.Lock()
	changed := f.list.Len() > 0
	f.list.Clear()
	f.commitLocked()
	f.mu.Unlock()
	f.drain()
	return changed
}

// Location returns the settled location, if any.
func (f *SingleValueField) Location() (string, bool) { return f.Value().Location() }

// MultiValueField stores an ordered list of files in an array property.
type MultiValueField struct{ *engine }

// NewMultiValueField validates prop and builds the field.
func NewMultiValueField(prop firecms.Property, opts Options) (*MultiValueField, error) {
	e, err := newEngine(prop, true, opts)
	if err != nil {
		return nil, err
	}
	return &MultiValueField{e}, nil
}

// Drop appends one entry per accepted file.
func (f *MultiValueField) Drop(ctx context.Context, files ...File) error {
	return f.drop(ctx, f.accepted(files), false)
}

// Clear removes the entry settled at location.
func (f *MultiValueField) Clear(location string) bool {
	f.mu.Lock()
	changed := f.list.RemoveLocation(location)
	f.commitLocked()
	f.mu.Unlock()
	f.drain()
	return changed
}

// Locations returns the settled locations in order.
func (f *MultiValueField) Locations() []string { return f.Value().Locations }

// engine is the entry list machinery shared by both field kinds.
type engine struct {
	multiple    bool
	storage     firecms.StorageConfig
	readOnly    bool
	size        PreviewSize
	opts        Options
	log         *zap.Logger
	notifier    Notifier
	nameFile    FileNameBuilder
	storagePath StoragePathBuilder

	// lifetime is the liveness token of the field: completions arriving after
	// Close find it cancelled and are discarded.
	lifetime context.Context
	stop     context.CancelFunc
	inflight errgroup.Group

	mu      sync.Mutex
	list    List
	initial []string
	last    Value
	queue   []Value

	emitMu sync.Mutex
}

func newEngine(prop firecms.Property, multiple bool, opts Options) (*engine, error) {
	key := opts.PropertyKey
	if multiple && (prop.Of == nil || prop.Of.DataType != firecms.DataTypeString) {
		return nil, firecms.NewError(firecms.CodeConfiguration, key, i18n.T(i18n.ArrayOfString, nil), nil)
	}
	sc := prop.StorageOf()
	if sc == nil {
		return nil, firecms.NewError(firecms.CodeConfiguration, key, i18n.T(i18n.StorageRequired, nil), nil)
	}
	if err := validate.Struct(sc); err != nil {
		return nil, firecms.NewError(firecms.CodeConfiguration, key, "invalid storage config", err)
	}
	if opts.Storage == nil {
		return nil, firecms.NewError(firecms.CodeConfiguration, key, "storage source required", nil)
	}

	e := &engine{
		multiple: multiple,
		storage:  *sc,
		readOnly: prop.IsReadOnly() || prop.Disabled,
		size:     opts.Size,
		opts:     opts,
		log:      opts.Logger,
		notifier: opts.Notifier,
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.notifier == nil {
		e.notifier = LogNotifier(e.log)
	}
	if e.size == SizeAuto {
		e.size = SizeRegular
		if multiple {
			e.size = SizeSmall
		}
	}
	e.nameFile = e.defaultFileName
	if opts.FileNameBuilder != nil {
		e.nameFile = opts.FileNameBuilder
	}
	e.storagePath = e.defaultStoragePath
	if opts.StoragePathBuilder != nil {
		e.storagePath = opts.StoragePathBuilder
	}
	e.lifetime, e.stop = context.WithCancel(context.Background())
	e.seed(opts.Initial)
	return e, nil
}

func (e *engine) templateContext(f File) TemplateContext {
	return TemplateContext{File: f, EntityID: e.opts.EntityID, Path: e.opts.Path, PropertyKey: e.opts.PropertyKey}
}

func (e *engine) defaultFileName(f File) (string, error) {
	if e.storage.FileName == "" {
		return f.Name(), nil
	}
	return ResolveStorageString(e.storage.FileName, e.templateContext(f)), nil
}

func (e *engine) defaultStoragePath(f File) string {
	return ResolveStorageString(e.storage.StoragePath, e.templateContext(f))
}

// seed replaces the list with settled entries. Caller holds mu or owns e.
func (e *engine) seed(locations []string) {
	if !e.multiple && len(locations) > 1 {
		locations = locations[:1]
	}
	entries := make([]Entry, 0, len(locations))
	for _, loc := range locations {
		if loc == "" {
			continue
		}
		entries = append(entries, SettledEntry(loc, e.storage.Metadata, e.size))
	}
	e.initial = append([]string(nil), locations...)
	e.list.Replace(entries...)
	e.last = e.valueLocked()
}

// Multiple reports whether the field holds a list.
func (e *engine) Multiple() bool { return e.multiple }

// HelpText is the drop zone hint.
func (e *engine) HelpText() string {
	if e.multiple {
		return i18n.T(i18n.DropHelpMultiple, nil)
	}
	return i18n.T(i18n.DropHelpSingle, nil)
}

// Entries returns a snapshot of the entries in order.
func (e *engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.Entries()
}

// Value returns the current value.
func (e *engine) Value() Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valueLocked()
}

// Reset re-seeds the field from an externally set value. It is a no-op when
// locations equal the value the field was last seeded with.
func (e *engine) Reset(locations ...string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cmp.Equal(e.initial, locations, cmpopts.EquateEmpty()) {
		return false
	}
	e.seed(locations)
	return true
}

// Move reorders one entry.
func (e *engine) Move(from, to int) bool {
	e.mu.Lock()
	moved := e.list.Move(from, to)
	if moved {
		e.commitLocked()
	}
	e.mu.Unlock()
	e.drain()
	return moved
}

// Remove drops an entry in any state. An upload still in flight for it is
// not cancelled; its result is discarded.
func (e *engine) Remove(id string) bool {
	e.mu.Lock()
	removed := e.list.Remove(id)
	if removed {
		e.commitLocked()
	}
	e.mu.Unlock()
	e.drain()
	return removed
}

// Wait blocks until every upload started so far has completed. It must not
// run concurrently with Drop.
func (e *engine) Wait() { _ = e.inflight.Wait() }

// Close ends the field lifetime. Uploads in flight keep running but their
// results are discarded.
func (e *engine) Close() { e.stop() }

func (e *engine) alive() bool { return e.lifetime.Err() == nil }

func (e *engine) accepted(files []File) []File {
	out := make([]File, 0, len(files))
	for _, f := range files {
		if f == nil {
			continue
		}
		if !Accepts(f, e.storage.AcceptedFiles) {
			e.log.Debug("file rejected", zap.String("file", f.Name()), zap.String("type", f.ContentType()))
			continue
		}
		out = append(out, f)
	}
	return out
}

func (e *engine) drop(ctx context.Context, files []File, replace bool) error {
	if len(files) == 0 || e.readOnly || e.opts.Disabled {
		return nil
	}
	if !e.alive() {
		return ErrClosed
	}

	// Name every file before touching the list so a naming failure leaves
	// the field untouched.
	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		name, err := e.nameFile(f)
		if err != nil {
			return firecms.NewError(firecms.CodeNaming, f.Name(), i18n.T(i18n.InvalidFileName, nil), err)
		}
		if name == "" {
			return firecms.NewError(firecms.CodeNaming, f.Name(), i18n.T(i18n.InvalidFileName, nil), nil)
		}
		entries = append(entries, PendingEntry(f, name, e.storage.Metadata, e.size))
	}

	e.mu.Lock()
	if replace {
		e.list.Replace(entries...)
	} else {
		e.list.Add(entries...)
	}
	started := make([]Entry, 0, len(entries))
	for _, en := range entries {
		if e.list.Index(en.ID) >= 0 {
			started = append(started, en)
		}
	}
	e.commitLocked()
	e.mu.Unlock()
	e.drain()

	// Transfers keep the request values but outlive its cancellation.
	uctx := context.WithoutCancel(ctx)
	for _, en := range started {
		e.start(uctx, en)
	}
	return nil
}

func (e *engine) start(ctx context.Context, en Entry) {
	dir := e.storagePath(en.File)
	if dir == "" {
		dir = "/"
	}
	e.inflight.Go(func() error {
		loc, err := e.transfer(ctx, en, dir)
		if err != nil {
			e.fail(en, err)
			return nil
		}
		e.settle(en.ID, loc, en.Metadata)
		return nil
	})
}

// transfer uploads the file, then resolves the download URL and post-processes
// when configured.
func (e *engine) transfer(ctx context.Context, en Entry, dir string) (string, error) {
	res, err := e.opts.Storage.UploadFile(ctx, UploadRequest{
		File:     en.File,
		FileName: en.FileName,
		Path:     dir,
		Metadata: en.Metadata,
	})
	if err != nil {
		return "", err
	}
	e.log.Debug("upload successful", zap.String("entry", en.ID), zap.String("path", res.Path))
	loc := res.Path
	if e.storage.StoreURL {
		if loc, err = e.opts.Storage.GetDownloadURL(ctx, loc); err != nil {
			return "", fmt.Errorf("resolve download url: %w", err)
		}
	}
	if e.opts.PostProcess != nil {
		if loc, err = e.opts.PostProcess(ctx, loc); err != nil {
			return "", fmt.Errorf("post-process: %w", err)
		}
	}
	if loc == "" {
		return "", errors.New("storage returned an empty location")
	}
	return loc, nil
}

func (e *engine) settle(id, location string, metadata map[string]string) {
	e.mu.Lock()
	if !e.alive() || !e.list.Settle(id, location, metadata) {
		e.mu.Unlock()
		e.log.Debug("discarding late completion", zap.String("entry", id))
		return
	}
	e.commitLocked()
	e.mu.Unlock()
	e.drain()
}

func (e *engine) fail(en Entry, cause error) {
	err := firecms.NewError(firecms.CodeTransport, en.File.Name(), "upload failed", cause)
	e.mu.Lock()
	ok := e.alive() && e.list.Fail(en.ID, err)
	e.mu.Unlock()
	if !ok {
		e.log.Debug("discarding late failure", zap.String("entry", en.ID), zap.Error(cause))
		return
	}
	e.log.Error("upload error", zap.String("entry", en.ID), zap.String("file", en.File.Name()), zap.Error(cause))
	e.notifier.Notify(Notification{
		Type:    NotifyError,
		Title:   i18n.T(i18n.UploadErrorTitle, nil),
		Message: cause.Error(),
	})
}

func (e *engine) valueLocked() Value {
	locs := e.list.Locations()
	if !e.multiple && len(locs) > 1 {
		locs = locs[:1]
	}
	return Value{Multiple: e.multiple, Locations: locs}
}

// commitLocked queues the current value for emission when it differs from
// the last one queued.
func (e *engine) commitLocked() {
	v := e.valueLocked()
	if cmp.Equal(v, e.last, cmpopts.EquateEmpty()) {
		return
	}
	e.last = v
	if e.opts.OnChange != nil {
		e.queue = append(e.queue, v)
	}
}

// drain delivers queued values in commit order. Only one goroutine delivers
// at a time; a call that finds delivery busy leaves its values to the
// current deliverer.
func (e *engine) drain() {
	for {
		if !e.emitMu.TryLock() {
			return
		}
		for {
			e.mu.Lock()
			if len(e.queue) == 0 {
				e.mu.Unlock()
				break
			}
			v := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			e.opts.OnChange(v)
		}
		e.emitMu.Unlock()

		e.mu.Lock()
		pending := len(e.queue) > 0
		e.mu.Unlock()
		if !pending {
			return
		}
	}
}
