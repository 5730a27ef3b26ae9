package upload_test

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	firecms "github.com/jinbe/firecms"
	"github.com/jinbe/firecms/upload"
)

// fakeStorage stores files at Path/FileName. Uploads of files registered with
// hold block until released.
type fakeStorage struct {
	mu      sync.Mutex
	gates   map[string]chan error
	started chan string
	reqs    []upload.UploadRequest
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{gates: map[string]chan error{}, started: make(chan string, 16)}
}

func (s *fakeStorage) hold(name string) chan<- error {
	ch := make(chan error, 1)
	s.mu.Lock()
	s.gates[name] = ch
	s.mu.Unlock()
	return ch
}

func (s *fakeStorage) UploadFile(ctx context.Context, req upload.UploadRequest) (upload.UploadResult, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	gate := s.gates[req.File.Name()]
	s.mu.Unlock()
	s.started <- req.File.Name()
	if gate != nil {
		if err := <-gate; err != nil {
			return upload.UploadResult{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return upload.UploadResult{}, err
	}
	return upload.UploadResult{Path: path.Join(req.Path, req.FileName)}, nil
}

func (s *fakeStorage) GetDownloadURL(_ context.Context, p string) (string, error) {
	return "https://cdn.example.com/" + strings.TrimPrefix(p, "/"), nil
}

func (s *fakeStorage) requests() []upload.UploadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upload.UploadRequest(nil), s.reqs...)
}

type recorder struct {
	mu     sync.Mutex
	values []upload.Value
	notes  []upload.Notification
}

func (r *recorder) onChange(v upload.Value) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

func (r *recorder) Notify(n upload.Notification) {
	r.mu.Lock()
	r.notes = append(r.notes, n)
	r.mu.Unlock()
}

func (r *recorder) emitted() []upload.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upload.Value(nil), r.values...)
}

func (r *recorder) notifications() []upload.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]upload.Notification(nil), r.notes...)
}

func imageProperty() firecms.Property {
	return firecms.Property{
		DataType: firecms.DataTypeString,
		Storage:  &firecms.StorageConfig{StoragePath: "images", Metadata: map[string]string{"cache": "max-age=60"}},
	}
}

func galleryProperty() firecms.Property {
	el := imageProperty()
	return firecms.Property{DataType: firecms.DataTypeArray, Of: &el}
}

func file(name string) *upload.MemoryFile {
	return upload.NewMemoryFile(name, []byte(name), "image/png")
}

func newMulti(t *testing.T, st *fakeStorage, rec *recorder, mutate ...func(*upload.Options)) *upload.MultiValueField {
	t.Helper()
	opts := upload.Options{Storage: st, Notifier: rec, OnChange: rec.onChange, Logger: zaptest.NewLogger(t)}
	for _, m := range mutate {
		m(&opts)
	}
	f, err := upload.NewMultiValueField(galleryProperty(), opts)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func newSingle(t *testing.T, st *fakeStorage, rec *recorder, mutate ...func(*upload.Options)) *upload.SingleValueField {
	t.Helper()
	opts := upload.Options{Storage: st, Notifier: rec, OnChange: rec.onChange, Logger: zaptest.NewLogger(t)}
	for _, m := range mutate {
		m(&opts)
	}
	f, err := upload.NewSingleValueField(imageProperty(), opts)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func multi(locs ...string) upload.Value { return upload.Value{Multiple: true, Locations: locs} }

func TestNewField_ConfigurationErrors(t *testing.T) {
	st := newFakeStorage()
	noStorage := firecms.Property{DataType: firecms.DataTypeString}
	noOf := firecms.Property{DataType: firecms.DataTypeArray}
	numberOf := firecms.Property{DataType: firecms.DataTypeArray, Of: &firecms.Property{DataType: firecms.DataTypeNumber}}
	badStorage := firecms.Property{DataType: firecms.DataTypeString, Storage: &firecms.StorageConfig{}}

	cases := []struct {
		name string
		prop firecms.Property
		opts upload.Options
	}{
		{"missing storage config", noStorage, upload.Options{Storage: st}},
		{"array without element", noOf, upload.Options{Storage: st}},
		{"array of numbers", numberOf, upload.Options{Storage: st}},
		{"storage path missing", badStorage, upload.Options{Storage: st}},
		{"missing storage source", imageProperty(), upload.Options{}},
		{"number property", firecms.Property{DataType: firecms.DataTypeNumber}, upload.Options{Storage: st}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := upload.NewField(tc.prop, tc.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, firecms.ErrConfiguration), "got %v", err)
		})
	}
}

func TestNewField_PicksVariant(t *testing.T) {
	st := newFakeStorage()
	f, err := upload.NewField(imageProperty(), upload.Options{Storage: st})
	require.NoError(t, err)
	defer f.Close()
	assert.IsType(t, &upload.SingleValueField{}, f)
	assert.False(t, f.Multiple())

	g, err := upload.NewField(galleryProperty(), upload.Options{Storage: st})
	require.NoError(t, err)
	defer g.Close()
	assert.IsType(t, &upload.MultiValueField{}, g)
	assert.Equal(t, "Drag 'n' drop some files here, or click to select files", g.HelpText())
}

func TestMulti_UploadsAndEmitsInListOrder(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec)

	require.NoError(t, f.Drop(context.Background(), file("a.png"), file("b.png")))
	f.Wait()

	assert.Equal(t, []string{"images/a.png", "images/b.png"}, f.Locations())
	emitted := rec.emitted()
	require.NotEmpty(t, emitted)
	assert.Equal(t, multi("images/a.png", "images/b.png"), emitted[len(emitted)-1])

	for _, req := range st.requests() {
		assert.Equal(t, "images", req.Path)
		assert.Equal(t, "max-age=60", req.Metadata["cache"])
	}
	for _, e := range f.Entries() {
		assert.Equal(t, upload.SizeSmall, e.Size)
	}
}

func TestMulti_CompletionOrderDoesNotChangeListOrder(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec)
	first := st.hold("first.png")
	second := st.hold("second.png")

	require.NoError(t, f.Drop(context.Background(), file("first.png"), file("second.png")))
	second <- nil
	<-st.started
	<-st.started
	first <- nil
	f.Wait()

	assert.Equal(t, []string{"images/first.png", "images/second.png"}, f.Locations())
}

func TestMulti_ReorderEmitsSettledOnly(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec, func(o *upload.Options) { o.Initial = []string{"a", "b", "c"} })
	pending := st.hold("d.png")
	require.NoError(t, f.Drop(context.Background(), file("d.png")))
	<-st.started

	require.True(t, f.Move(0, 2))
	assert.Equal(t, []upload.Value{multi("b", "c", "a")}, rec.emitted())

	// the pending entry moves without changing the value
	require.True(t, f.Move(3, 0))
	assert.Len(t, rec.emitted(), 1)
	assert.Equal(t, upload.StatePending, f.Entries()[0].State())

	pending <- nil
	f.Wait()
	assert.Equal(t, []string{"images/d.png", "b", "c", "a"}, f.Locations())
}

// TestMulti_FailureAfterLaterSuccess drops E1 then E2; E2 succeeds first and
// E1 fails afterwards.
func TestMulti_FailureAfterLaterSuccess(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec)
	e1 := st.hold("e1.png")
	e2 := st.hold("e2.png")

	require.NoError(t, f.Drop(context.Background(), file("e1.png")))
	require.NoError(t, f.Drop(context.Background(), file("e2.png")))
	<-st.started
	<-st.started
	e2 <- nil
	require.Eventually(t, func() bool { return len(f.Locations()) == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, upload.StatePending, f.Entries()[0].State())
	e1 <- errors.New("quota exceeded")
	f.Wait()

	assert.Equal(t, []string{"images/e2.png"}, f.Locations())
	entries := f.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, upload.StateFailed, entries[0].State())
	assert.Equal(t, "e1.png", entries[0].File.Name())
	assert.True(t, errors.Is(entries[0].Err, firecms.ErrTransport))
	assert.Equal(t, upload.StateSettled, entries[1].State())

	notes := rec.notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, upload.NotifyError, notes[0].Type)
	assert.Equal(t, "Error uploading file", notes[0].Title)
	assert.Equal(t, "quota exceeded", notes[0].Message)

	// the failed entry can be removed and the file retried
	require.True(t, f.Remove(entries[0].ID))
	require.NoError(t, f.Drop(context.Background(), file("retry.png")))
	f.Wait()
	assert.Equal(t, []string{"images/e2.png", "images/retry.png"}, f.Locations())
}

func TestMulti_LateCompletionIsDiscarded(t *testing.T) {
	for _, outcome := range []error{nil, errors.New("boom")} {
		st := newFakeStorage()
		rec := &recorder{}
		f := newMulti(t, st, rec, func(o *upload.Options) { o.Initial = []string{"kept"} })
		gate := st.hold("late.png")

		require.NoError(t, f.Drop(context.Background(), file("late.png")))
		<-st.started
		entries := f.Entries()
		require.Len(t, entries, 2)
		require.True(t, f.Remove(entries[1].ID))

		gate <- outcome
		f.Wait()

		assert.Equal(t, []string{"kept"}, f.Locations())
		assert.Len(t, f.Entries(), 1)
		assert.Empty(t, rec.emitted())
		assert.Empty(t, rec.notifications())
	}
}

func TestField_CloseDiscardsCompletions(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newSingle(t, st, rec)
	gate := st.hold("a.png")

	require.NoError(t, f.Drop(context.Background(), file("a.png")))
	<-st.started
	f.Close()
	gate <- nil
	f.Wait()

	_, ok := f.Location()
	assert.False(t, ok)
	assert.Empty(t, rec.emitted())
	assert.ErrorIs(t, f.Drop(context.Background(), file("b.png")), upload.ErrClosed)
}

func TestMulti_DuplicatePendingFileCollapses(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec)
	gate := st.hold("a.png")
	a := file("a.png")

	require.NoError(t, f.Drop(context.Background(), a))
	require.NoError(t, f.Drop(context.Background(), a))
	<-st.started
	assert.Len(t, f.Entries(), 1)
	gate <- nil
	f.Wait()
	assert.Len(t, st.requests(), 1)
}

func TestMulti_DuplicateLocationCollapses(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec, func(o *upload.Options) { o.Initial = []string{"images/a.png"} })

	require.NoError(t, f.Drop(context.Background(), file("a.png")))
	f.Wait()
	assert.Equal(t, []string{"images/a.png"}, f.Locations())
	assert.Len(t, f.Entries(), 1)
	assert.Empty(t, rec.emitted())
}

func TestSingle_DropKeepsFirstFileOnly(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newSingle(t, st, rec)
	gate := st.hold("one.png")

	require.NoError(t, f.Drop(context.Background(), file("one.png"), file("two.png")))
	<-st.started
	entries := f.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "one.png", entries[0].File.Name())
	assert.Equal(t, upload.SizeRegular, entries[0].Size)

	gate <- nil
	f.Wait()
	loc, ok := f.Location()
	require.True(t, ok)
	assert.Equal(t, "images/one.png", loc)
	assert.Len(t, st.requests(), 1)
	assert.Equal(t, []upload.Value{{Locations: []string{"images/one.png"}}}, rec.emitted())
}

func TestSingle_ClearEmitsNull(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newSingle(t, st, rec, func(o *upload.Options) { o.Initial = []string{"images/old.png"} })

	assert.True(t, f.Clear("anything"))
	emitted := rec.emitted()
	require.Len(t, emitted, 1)
	assert.True(t, emitted[0].IsNull())
	assert.False(t, f.Clear(""))
	assert.Len(t, rec.emitted(), 1)
}

func TestMulti_Clear(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec, func(o *upload.Options) { o.Initial = []string{"a", "b"} })

	assert.True(t, f.Clear("a"))
	assert.False(t, f.Clear("zzz"))
	assert.Equal(t, []upload.Value{multi("b")}, rec.emitted())
}

func TestField_NamingErrorLeavesStateUntouched(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec, func(o *upload.Options) {
		o.FileNameBuilder = func(f upload.File) (string, error) {
			if f.Name() == "bad.png" {
				return "", nil
			}
			return f.Name(), nil
		}
	})

	err := f.Drop(context.Background(), file("ok.png"), file("bad.png"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, firecms.ErrNaming))
	assert.Empty(t, f.Entries())
	f.Wait()
	assert.Empty(t, st.requests())
}

func TestField_StoreURLAndPostProcess(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	prop := imageProperty()
	prop.Storage.StoreURL = true
	prop.Storage.FileName = "{entityId}-{file.name}.{file.ext}"
	f, err := upload.NewSingleValueField(prop, upload.Options{
		Storage:  st,
		Notifier: rec,
		OnChange: rec.onChange,
		EntityID: "42",
		PostProcess: func(_ context.Context, s string) (string, error) {
			return s + "?v=1", nil
		},
	})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Drop(context.Background(), file("photo.png")))
	f.Wait()
	loc, ok := f.Location()
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/images/42-photo.png?v=1", loc)
}

func TestField_PostProcessFailureIsTransportError(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newSingle(t, st, rec, func(o *upload.Options) {
		o.PostProcess = func(context.Context, string) (string, error) { return "", errors.New("resize failed") }
	})

	require.NoError(t, f.Drop(context.Background(), file("a.png")))
	f.Wait()
	entries := f.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, upload.StateFailed, entries[0].State())
	require.Len(t, rec.notifications(), 1)
	assert.Contains(t, rec.notifications()[0].Message, "resize failed")
}

func TestField_DisabledAndAcceptedFiles(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec, func(o *upload.Options) { o.Disabled = true })
	require.NoError(t, f.Drop(context.Background(), file("a.png")))
	assert.Empty(t, f.Entries())

	prop := galleryProperty()
	prop.Of.Storage.AcceptedFiles = []string{"image/*"}
	g, err := upload.NewMultiValueField(prop, upload.Options{Storage: st})
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.Drop(context.Background(),
		upload.NewMemoryFile("notes.txt", []byte("x"), "text/plain"), file("a.png")))
	g.Wait()
	assert.Equal(t, []string{"images/a.png"}, g.Locations())
}

func TestField_Reset(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec, func(o *upload.Options) { o.Initial = []string{"a", "b"} })

	assert.False(t, f.Reset("a", "b"))
	assert.True(t, f.Reset("c"))
	assert.Equal(t, []string{"c"}, f.Locations())
	assert.Empty(t, rec.emitted())
}

func TestField_OnChangeMayReadField(t *testing.T) {
	st := newFakeStorage()
	var seen [][]string
	var f *upload.MultiValueField
	var err error
	f, err = upload.NewMultiValueField(galleryProperty(), upload.Options{
		Storage:  st,
		Initial:  []string{"a", "b"},
		OnChange: func(upload.Value) { seen = append(seen, f.Locations()) },
	})
	require.NoError(t, err)
	defer f.Close()

	f.Move(1, 0)
	assert.Equal(t, [][]string{{"b", "a"}}, seen)
}

func TestField_UploadOutlivesDropContext(t *testing.T) {
	st := newFakeStorage()
	rec := &recorder{}
	f := newMulti(t, st, rec)
	gate := st.hold("a.png")

	type requestKey struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), requestKey{}, "req-1"))
	require.NoError(t, f.Drop(ctx, file("a.png")))
	<-st.started
	cancel()
	gate <- nil
	f.Wait()

	assert.Equal(t, []string{"images/a.png"}, f.Locations())
	assert.Empty(t, rec.notifications())
}
