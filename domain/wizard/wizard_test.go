package wizard

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"datapilot/adapters/export"
	"datapilot/adapters/simulated"
	"datapilot/domain/analysis"
	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() core.Timestamp { return core.NewTimestamp(c.t) }

type recordingSaver struct {
	saved []analysis.Artifact
	err   error
}

func (s *recordingSaver) Save(_ context.Context, a analysis.Artifact) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, a)
	return nil
}

// mockBackend is a testify mock of ports.AnalyticsBackend
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Upload(ctx context.Context, role core.RoleID, file analysis.Upload) (*analysis.Dataset, error) {
	args := m.Called(ctx, role, file)
	ds, _ := args.Get(0).(*analysis.Dataset)
	return ds, args.Error(1)
}

func (m *mockBackend) Clean(ctx context.Context, role core.RoleID, op string, rows []analysis.Row) ([]analysis.Row, error) {
	args := m.Called(ctx, role, op, rows)
	out, _ := args.Get(0).([]analysis.Row)
	return out, args.Error(1)
}

func (m *mockBackend) Analyze(ctx context.Context, role core.RoleID, task core.TaskID, p analysis.TaskPayload) (*analysis.Chart, error) {
	args := m.Called(ctx, role, task, p)
	c, _ := args.Get(0).(*analysis.Chart)
	return c, args.Error(1)
}

func (m *mockBackend) Insight(ctx context.Context, role core.RoleID, q string) (string, error) {
	args := m.Called(ctx, role, q)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Report(ctx context.Context, role core.RoleID, format string) ([]byte, error) {
	args := m.Called(ctx, role, format)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockBackend) ChartExport(ctx context.Context, chartID string) ([]byte, error) {
	args := m.Called(ctx, chartID)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockBackend) Preview(ctx context.Context, role core.RoleID) (*analysis.Dataset, error) {
	args := m.Called(ctx, role)
	ds, _ := args.Get(0).(*analysis.Dataset)
	return ds, args.Error(1)
}

var askedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newSimulatedWizard(t *testing.T) *Wizard {
	t.Helper()
	role := catalog.MustLookup("finance")
	return New(role, simulated.NewBackend(simulated.Delays{}), export.NewExporter(), WithClock(fixedClock{askedAt}))
}

func sampleUpload() analysis.Upload {
	return analysis.Upload{
		FileHandle: analysis.FileHandle{Name: "sales.csv", Size: 128, ContentType: "text/csv"},
		Body:       strings.NewReader("name,sales\nA,1\n"),
	}
}

func uploaded(t *testing.T) *Wizard {
	t.Helper()
	w := newSimulatedWizard(t)
	_, err := w.UploadFile(context.Background(), sampleUpload())
	require.NoError(t, err)
	return w
}

func TestNewWizardStartsAtUpload(t *testing.T) {
	s := newSimulatedWizard(t).Snapshot()
	assert.Equal(t, StepUpload, s.CurrentStep)
	assert.Empty(t, s.Completed)
	assert.False(t, s.Processing())
	assert.False(t, s.HasDataset())
	assert.Equal(t, core.RoleID("finance"), s.RoleID)
}

func TestUploadFilePopulatesPreview(t *testing.T) {
	w := newSimulatedWizard(t)

	ds, err := w.UploadFile(context.Background(), sampleUpload())
	require.NoError(t, err)

	s := w.Snapshot()
	require.NotEmpty(t, s.Preview)
	assert.Equal(t, simulated.SampleColumns, s.Columns)
	assert.ElementsMatch(t, analysis.ColumnsOf(s.Preview[0]), s.Columns)
	assert.Equal(t, StepClean, s.CurrentStep)
	assert.True(t, s.IsCompleted(StepUpload))
	assert.Equal(t, "sales.csv", s.File.Name)
	assert.Equal(t, ds.Columns, s.Columns)
	assert.Nil(t, s.LastFailure)
}

func TestUploadFileValidation(t *testing.T) {
	tests := []struct {
		name string
		file analysis.FileHandle
	}{
		{"no file", analysis.FileHandle{}},
		{"wrong extension", analysis.FileHandle{Name: "notes.txt", Size: 10}},
		{"too large", analysis.FileHandle{Name: "big.xlsx", Size: MaxUploadSize + 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newSimulatedWizard(t)
			_, err := w.UploadFile(context.Background(), analysis.Upload{FileHandle: tt.file})
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

			s := w.Snapshot()
			assert.Equal(t, StepUpload, s.CurrentStep)
			require.NotNil(t, s.LastFailure)
			assert.Equal(t, StepUpload, s.LastFailure.Step)
		})
	}
}

func TestReuploadClearsDerivedState(t *testing.T) {
	w := uploaded(t)
	ctx := context.Background()
	_, err := w.RunCleaningAction(ctx, "normalize")
	require.NoError(t, err)
	_, err = w.RunTask(ctx, "t1")
	require.NoError(t, err)
	_, err = w.AskQuestion(ctx, "q1")
	require.NoError(t, err)

	_, err = w.UploadFile(ctx, sampleUpload())
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Equal(t, StepClean, s.CurrentStep)
	assert.Equal(t, []Step{StepUpload}, s.Completed)
	assert.Empty(t, s.Cleaned)
	assert.Empty(t, s.Charts)
	assert.Empty(t, s.CompletedTasks)
	assert.Empty(t, s.Insights)
}

func TestRequestPreview(t *testing.T) {
	w := uploaded(t)

	rows, err := w.RequestPreview(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	s := w.Snapshot()
	assert.Equal(t, StepClean, s.CurrentStep)
	assert.True(t, s.IsCompleted(StepClean))
}

func TestActionsRequireDataset(t *testing.T) {
	w := newSimulatedWizard(t)
	ctx := context.Background()

	_, err := w.RequestPreview(ctx)
	assert.ErrorIs(t, err, core.ErrNoDataset)
	_, err = w.RunCleaningAction(ctx, "normalize")
	assert.ErrorIs(t, err, core.ErrNoDataset)
	_, err = w.RunTask(ctx, "t1")
	assert.ErrorIs(t, err, core.ErrNoDataset)
	_, err = w.AskQuestion(ctx, "q1")
	assert.ErrorIs(t, err, core.ErrNoDataset)

	s := w.Snapshot()
	assert.Equal(t, StepUpload, s.CurrentStep)
	assert.Empty(t, s.Completed)
}

func TestRunCleaningActionKeepsFirstThreeRows(t *testing.T) {
	w := uploaded(t)

	cleaned, err := w.RunCleaningAction(context.Background(), "remove-nulls")
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Equal(t, s.Preview[:3], s.Cleaned)
	assert.Equal(t, s.Cleaned, cleaned)
	assert.Equal(t, StepRoleTasks, s.CurrentStep)
	assert.True(t, s.IsCompleted(StepRoleTasks))
}

func TestRunCleaningActionRejectsUnknownAction(t *testing.T) {
	w := uploaded(t)

	_, err := w.RunCleaningAction(context.Background(), "shred")
	assert.ErrorIs(t, err, core.ErrUnknownAction)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
	assert.False(t, w.Snapshot().IsCompleted(StepRoleTasks))
}

func TestRunTaskAppendsChartsInCallOrder(t *testing.T) {
	w := uploaded(t)
	ctx := context.Background()

	_, err := w.RunTask(ctx, "t1")
	require.NoError(t, err)
	_, err = w.RunTask(ctx, "t2")
	require.NoError(t, err)

	s := w.Snapshot()
	require.Len(t, s.Charts, 2)
	assert.Equal(t, "t1 Analysis", s.Charts[0].Title)
	assert.Equal(t, "t2 Analysis", s.Charts[1].Title)
	assert.Equal(t, []core.TaskID{"t1", "t2"}, s.CompletedTasks)
	assert.Equal(t, StepVisualize, s.CurrentStep)
	assert.True(t, s.IsCompleted(StepVisualize))
}

func TestRunTaskTwiceReplacesChart(t *testing.T) {
	w := uploaded(t)
	ctx := context.Background()

	_, err := w.RunTask(ctx, "t1")
	require.NoError(t, err)
	_, err = w.RunTask(ctx, "t1")
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Len(t, s.Charts, 1)
	assert.Equal(t, []core.TaskID{"t1"}, s.CompletedTasks)
}

func TestAskQuestionRecordsInsight(t *testing.T) {
	w := uploaded(t)

	insight, err := w.AskQuestion(context.Background(), "q1")
	require.NoError(t, err)

	s := w.Snapshot()
	require.Len(t, s.Insights, 1)
	assert.Equal(t, "q1", s.Insights[0].Question)
	assert.Equal(t, askedAt, s.Insights[0].CreatedAt.Time())
	assert.Contains(t, insight.Response, "finance analyst data")
	assert.Equal(t, StepInsights, s.CurrentStep)
	assert.True(t, s.IsCompleted(StepInsights))
}

func TestAskQuestionRejectsBlank(t *testing.T) {
	w := uploaded(t)
	_, err := w.AskQuestion(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrEmptyQuestion)
	assert.Empty(t, w.Snapshot().Insights)
}

func TestStepOnlyMovesForward(t *testing.T) {
	w := uploaded(t)
	ctx := context.Background()

	_, err := w.AskQuestion(ctx, "q1")
	require.NoError(t, err)
	_, err = w.RunCleaningAction(ctx, "normalize")
	require.NoError(t, err)

	s := w.Snapshot()
	assert.Equal(t, StepInsights, s.CurrentStep)
	assert.True(t, s.IsCompleted(StepRoleTasks))
}

func TestDownloadArtifactSavesExactlyOnce(t *testing.T) {
	w := uploaded(t)
	saver := &recordingSaver{}

	a, err := w.DownloadArtifact(context.Background(), "chart1", "png", saver)
	require.NoError(t, err)

	require.Len(t, saver.saved, 1)
	assert.Equal(t, "chart1.png", saver.saved[0].Name)
	assert.Equal(t, "chart1.png", a.Name)
	assert.True(t, w.Snapshot().IsCompleted(StepDownload))
}

func TestDownloadWithoutDatasetDoesNotComplete(t *testing.T) {
	w := newSimulatedWizard(t)
	saver := &recordingSaver{}

	_, err := w.DownloadArtifact(context.Background(), "report", "pdf", saver)
	require.NoError(t, err)
	assert.Len(t, saver.saved, 1)
	assert.False(t, w.Snapshot().IsCompleted(StepDownload))
}

func TestDownloadRejectsBadNames(t *testing.T) {
	w := uploaded(t)
	saver := &recordingSaver{}

	for _, name := range [][2]string{{"../etc", "txt"}, {"report", "tar.gz"}, {"", "csv"}} {
		_, err := w.DownloadArtifact(context.Background(), name[0], name[1], saver)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err), name)
	}
	assert.Empty(t, saver.saved)
}

func TestDownloadSaverFailure(t *testing.T) {
	w := uploaded(t)
	saver := &recordingSaver{err: stderrors.New("disk full")}

	_, err := w.DownloadArtifact(context.Background(), "report", "csv", saver)
	require.Error(t, err)
	assert.False(t, w.Snapshot().IsCompleted(StepDownload))
	require.NotNil(t, w.Snapshot().LastFailure)
}

func TestBackendFailureLeavesStateIntact(t *testing.T) {
	backend := new(mockBackend)
	w := New(catalog.MustLookup("marketing"), backend, export.NewExporter(), WithClock(fixedClock{askedAt}))

	ds := &analysis.Dataset{Columns: []string{"name"}, Rows: []analysis.Row{{"name": "A"}}}
	backend.On("Upload", mock.Anything, core.RoleID("marketing"), mock.Anything).Return(ds, nil)
	backend.On("Analyze", mock.Anything, core.RoleID("marketing"), core.TaskID("roi-analysis"), mock.Anything).
		Return(nil, stderrors.New("connection refused"))

	ctx := context.Background()
	_, err := w.UploadFile(ctx, sampleUpload())
	require.NoError(t, err)
	before := w.Snapshot()

	_, err = w.RunTask(ctx, "roi-analysis")
	require.Error(t, err)
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))

	after := w.Snapshot()
	require.NotNil(t, after.LastFailure)
	assert.Equal(t, StepVisualize, after.LastFailure.Step)
	assert.Equal(t, errors.CodeExternalService, after.LastFailure.Code)
	assert.Equal(t, askedAt, after.LastFailure.At.Time())

	after.LastFailure = nil
	assert.Equal(t, before, after)
	backend.AssertExpectations(t)
}

func TestSuccessClearsLastFailure(t *testing.T) {
	w := uploaded(t)
	ctx := context.Background()

	_, err := w.RunCleaningAction(ctx, "shred")
	require.Error(t, err)
	require.NotNil(t, w.Snapshot().LastFailure)

	_, err = w.RunCleaningAction(ctx, "normalize")
	require.NoError(t, err)
	assert.Nil(t, w.Snapshot().LastFailure)
}

func TestConcurrentHandlerIsRejectedAsBusy(t *testing.T) {
	backend := new(mockBackend)
	w := New(catalog.MustLookup("general"), backend, export.NewExporter())

	release := make(chan time.Time)
	ds := &analysis.Dataset{Columns: []string{"name"}, Rows: []analysis.Row{{"name": "A"}}}
	backend.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		WaitUntil(release).Return(ds, nil)

	done := make(chan error, 1)
	go func() {
		_, err := w.UploadFile(context.Background(), sampleUpload())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return w.Snapshot().Status.RunningStep(StepUpload)
	}, time.Second, 5*time.Millisecond)

	before := w.Snapshot()
	_, err := w.AskQuestion(context.Background(), "q1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeBusy, errors.GetCode(err))
	assert.Equal(t, before, w.Snapshot())

	close(release)
	require.NoError(t, <-done)

	s := w.Snapshot()
	assert.False(t, s.Processing())
	assert.Equal(t, StepClean, s.CurrentStep)
}

func TestCanceledContextAppliesNothing(t *testing.T) {
	role := catalog.MustLookup("finance")
	w := New(role, simulated.NewBackend(simulated.Delays{Upload: time.Hour}), export.NewExporter())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := w.UploadFile(ctx, sampleUpload())
	require.Error(t, err)
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
	assert.ErrorIs(t, err, context.Canceled)

	s := w.Snapshot()
	assert.False(t, s.HasDataset())
	assert.Equal(t, StepUpload, s.CurrentStep)
	assert.False(t, s.Processing())
}

func TestSnapshotIsACopy(t *testing.T) {
	w := uploaded(t)

	s := w.Snapshot()
	s.Preview[0]["name"] = "mutated"
	s.Columns[0] = "mutated"

	again := w.Snapshot()
	assert.Equal(t, "Product A", again.Preview[0]["name"])
	assert.Equal(t, "name", again.Columns[0])
}
