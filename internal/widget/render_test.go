package widget_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgoulah/energygoal/internal/datatable"
	"github.com/jgoulah/energygoal/internal/sink"
	"github.com/jgoulah/energygoal/internal/widget"
	"github.com/jgoulah/energygoal/pkg/models"
)

const container = "energy-goal"

var checkedAt = time.Date(2011, 10, 3, 14, 5, 9, 0, time.UTC)

func tableWith(t *testing.T, rows ...[]any) *datatable.Memory {
	t.Helper()
	table := datatable.New(datatable.ConsumptionColumns()...)
	for _, r := range rows {
		require.NoError(t, table.AddRow(r...))
	}
	return table
}

func lounge(actual, goal, warning any) []any {
	return []any{"Lehua-A", checkedAt, actual, goal, warning}
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func renderDoc(t *testing.T, table datatable.Table, opts widget.Options) (*goquery.Document, *widget.Result) {
	t.Helper()
	r, err := widget.New(opts, nil)
	require.NoError(t, err)

	s := sink.NewMemory(container)
	res, err := r.Render(context.Background(), s, container, "Lehua-A", table)
	require.NoError(t, err)

	content, ok := s.Content(container)
	require.True(t, ok)
	assert.Equal(t, res.HTML, content)
	return parse(t, string(content)), res
}

func TestRenderScenarios(t *testing.T) {
	tests := []struct {
		name      string
		actual    int
		goal      int
		warning   int
		status    models.Status
		caption   string
		stoplight string
	}{
		{
			name: "near goal", actual: 50, goal: 60, warning: 45,
			status:    models.NearGoal,
			caption:   "Your lounge is currently making the goal, but just barely (10 kWh). See below for ways to conserve.",
			stoplight: "stop_light_yellow.png",
		},
		{
			name: "over goal by 10", actual: 50, goal: 40, warning: 45,
			status:    models.OverGoal,
			caption:   "Your lounge is currently over the goal by 10 kWh. See below for ways to conserve.",
			stoplight: "stop_light_red.png",
		},
		{
			name: "just barely", actual: 47, goal: 50, warning: 45,
			status:    models.NearGoal,
			caption:   "Your lounge is currently making the goal, but just barely (3 kWh). See below for ways to conserve.",
			stoplight: "stop_light_yellow.png",
		},
		{
			name: "beating the goal", actual: 30, goal: 40, warning: 45,
			status:    models.UnderGoal,
			caption:   "Your lounge is currently beating the goal by 10 kWh. Great job!",
			stoplight: "stop_light_green.png",
		},
		{
			name: "actual equals goal is not over", actual: 50, goal: 50, warning: 45,
			status:    models.NearGoal,
			caption:   "Your lounge is currently making the goal, but just barely (0 kWh). See below for ways to conserve.",
			stoplight: "stop_light_yellow.png",
		},
		{
			name: "actual equals warning is under", actual: 45, goal: 50, warning: 45,
			status:    models.UnderGoal,
			caption:   "Your lounge is currently beating the goal by 5 kWh. Great job!",
			stoplight: "stop_light_green.png",
		},
		{
			name: "large values get separators", actual: 12500, goal: 10000, warning: 9000,
			status:    models.OverGoal,
			caption:   "Your lounge is currently over the goal by 2,500 kWh. See below for ways to conserve.",
			stoplight: "stop_light_red.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, res := renderDoc(t, tableWith(t, lounge(tt.actual, tt.goal, tt.warning)), widget.Options{})

			assert.Equal(t, tt.status, res.Status)
			assert.Equal(t, tt.caption, res.Caption)
			assert.Equal(t, tt.caption, doc.Find("td.caption").Text())

			src, ok := doc.Find("td.stoplight img").Attr("src")
			require.True(t, ok)
			assert.Equal(t, widget.DefaultAssetPath+tt.stoplight, src)

			status, _ := doc.Find("table.energy-goal").Attr("data-status")
			assert.Equal(t, tt.status.String(), status)
		})
	}
}

func TestRenderLayout(t *testing.T) {
	doc, res := renderDoc(t, tableWith(t, lounge(47, 50, 45)), widget.Options{})

	assert.Equal(t, "10/03/11 2:05:09 PM", res.LastCheck)
	assert.Equal(t, "Last check: 10/03/11 2:05:09 PM", doc.Find("td.last-check").Text())

	actual := doc.Find("td.actual")
	assert.Contains(t, actual.Text(), "Consumption Today")
	assert.Contains(t, actual.Text(), "47 kWh")
	goal := doc.Find("td.goal")
	assert.Contains(t, goal.Text(), "Goal for Today")
	assert.Contains(t, goal.Text(), "50 kWh")

	// actual, stoplight, goal side by side
	cells := doc.Find("table.energy-goal > tbody > tr").First().ChildrenFiltered("td")
	require.Equal(t, 3, cells.Length())
	assert.True(t, cells.Eq(0).HasClass("actual"))
	assert.True(t, cells.Eq(1).HasClass("stoplight"))
	assert.True(t, cells.Eq(2).HasClass("goal"))

	style, _ := doc.Find("table.energy-goal").Attr("style")
	assert.Contains(t, style, "background-color: #F5F3E5;")
	assert.Contains(t, style, "width: 300px;")
}

func TestRenderOptions(t *testing.T) {
	opts := widget.Options{
		Width:           420,
		BackgroundColor: "#ffffff",
		GlobalStyle:     widget.Style{"font-family": "Georgia", "border": "1px solid #ccc"},
		TitleStyle:      widget.Style{"color": "gray"},
		CaptionStyle:    widget.Style{"font-style": "italic"},
		AssetPath:       "/static/img",
		Subject:         "Mokihana 3rd floor",
		DatePattern:     "yyyy-MM-dd HH:mm",
	}
	doc, res := renderDoc(t, tableWith(t, lounge(30, 40, 35)), opts)

	style, _ := doc.Find("table.energy-goal").Attr("style")
	assert.Contains(t, style, "width: 420px;")
	assert.Contains(t, style, "background-color: #ffffff;")
	assert.Contains(t, style, "font-family: Georgia;")
	assert.Contains(t, style, "border: 1px solid #ccc;")

	titleStyle, _ := doc.Find("td.actual td").First().Attr("style")
	assert.Contains(t, titleStyle, "color: gray;")

	captionStyle, _ := doc.Find("td.caption").Attr("style")
	assert.Contains(t, captionStyle, "font-style: italic;")
	assert.Contains(t, captionStyle, "font-size: 0.8em;")

	src, _ := doc.Find("td.stoplight img").Attr("src")
	assert.Equal(t, "/static/img/stop_light_green.png", src)

	assert.True(t, strings.HasPrefix(res.Caption, "Mokihana 3rd floor is currently beating"))
	assert.Equal(t, "2011-10-03 14:05", res.LastCheck)
}

func TestRenderEscapesText(t *testing.T) {
	table := tableWith(t, []any{"<script>", checkedAt, 1, 2, 1})
	r, err := widget.New(widget.Options{Subject: "<b>Lounge</b>"}, nil)
	require.NoError(t, err)

	res, err := r.Fragment("<script>", table)
	require.NoError(t, err)
	assert.NotContains(t, string(res.HTML), "<b>Lounge</b>")
	assert.Contains(t, string(res.HTML), "&lt;b&gt;Lounge&lt;/b&gt;")
}

func TestRenderIsIdempotent(t *testing.T) {
	table := tableWith(t, lounge(47, 50, 45))
	opts := widget.Options{GlobalStyle: widget.Style{"b": "1", "a": "2", "c": "3"}}
	s := sink.NewMemory(container)

	require.NoError(t, widget.Render(context.Background(), s, container, "Lehua-A", table, opts))
	first, _ := s.Content(container)

	for i := 0; i < 5; i++ {
		require.NoError(t, widget.Render(context.Background(), s, container, "Lehua-A", table, opts))
		again, _ := s.Content(container)
		assert.Equal(t, first, again)
	}
}

func TestRenderFirstMatchWins(t *testing.T) {
	table := tableWith(t,
		[]any{"Ilima", checkedAt, 10, 20, 15},
		lounge(50, 40, 35),
		lounge(10, 40, 35),
	)
	r, err := widget.New(widget.Options{}, nil)
	require.NoError(t, err)

	res, err := r.Fragment("Lehua-A", table)
	require.NoError(t, err)
	assert.Equal(t, models.OverGoal, res.Status)
	assert.Equal(t, 50, res.Record.Actual)
}

func TestRenderValueConversion(t *testing.T) {
	tests := []struct {
		name   string
		actual any
		want   int
	}{
		{"int", 47, 47},
		{"int64", int64(47), 47},
		{"uint8", uint8(47), 47},
		{"float truncates", 47.9, 47},
		{"negative float truncates toward zero", -2.5, -2},
		{"numeric string", " 47 ", 47},
		{"decimal string", "47.6", 47},
	}

	r, err := widget.New(widget.Options{}, nil)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Fragment("Lehua-A", tableWith(t, lounge(tt.actual, 50, 45)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Record.Actual)
		})
	}
}

func TestRenderErrorsLeaveSinkUntouched(t *testing.T) {
	tests := []struct {
		name   string
		source string
		row    []any
		want   error
	}{
		{"missing source", "Mokihana", lounge(47, 50, 45), widget.ErrRecordNotFound},
		{"non-numeric actual", "Lehua-A", lounge("lots", 50, 45), widget.ErrInvalidData},
		{"missing goal", "Lehua-A", lounge(47, nil, 45), widget.ErrInvalidData},
		{"boolean warning", "Lehua-A", lounge(47, 50, true), widget.ErrInvalidData},
		{"timestamp not a date", "Lehua-A", []any{"Lehua-A", "yesterday", 47, 50, 45}, widget.ErrInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sink.NewMemory(container)
			require.NoError(t, s.Replace(context.Background(), container, "previous"))

			err := widget.Render(context.Background(), s, container, tt.source, tableWith(t, tt.row), widget.Options{})
			assert.ErrorIs(t, err, tt.want)

			content, _ := s.Content(container)
			assert.Equal(t, "previous", string(content))
		})
	}
}

func TestRenderMissingContainer(t *testing.T) {
	s := sink.NewMemory("somewhere-else")
	err := widget.Render(context.Background(), s, container, "Lehua-A", tableWith(t, lounge(47, 50, 45)), widget.Options{})
	assert.ErrorIs(t, err, widget.ErrSinkNotFound)
}

func TestRenderShortTable(t *testing.T) {
	table := datatable.New(datatable.ConsumptionColumns()[:3]...)
	require.NoError(t, table.AddRow("Lehua-A", checkedAt, 1))

	_, err := widget.ReadRecord(table, "Lehua-A")
	assert.ErrorIs(t, err, widget.ErrInvalidData)
}

func TestFindRow(t *testing.T) {
	table := tableWith(t,
		[]any{"Ilima", checkedAt, 1, 2, 1},
		[]any{nil, checkedAt, 1, 2, 1},
		lounge(1, 2, 1),
	)

	row, err := widget.FindRow(table, "Lehua-A")
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	_, err = widget.FindRow(table, "")
	assert.ErrorIs(t, err, widget.ErrRecordNotFound)

	_, err = widget.FindRow(datatable.New(datatable.ConsumptionColumns()...), "Lehua-A")
	assert.ErrorIs(t, err, widget.ErrRecordNotFound)
}

func TestRecordAt(t *testing.T) {
	table := tableWith(t,
		lounge(47, 50, 45),
		[]any{nil, checkedAt, 1, 2, 1},
	)

	rec, err := widget.RecordAt(table, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ConsumptionRecord{Source: "Lehua-A", Timestamp: checkedAt, Actual: 47, Goal: 50, Warning: 45}, rec)

	_, err = widget.RecordAt(table, 1)
	assert.ErrorIs(t, err, widget.ErrInvalidData)

	_, err = widget.RecordAt(table, 2)
	assert.ErrorIs(t, err, datatable.ErrOutOfRange)
}

func TestWarningAboveGoalIsClassified(t *testing.T) {
	table := tableWith(t,
		[]any{"Lehua-A", checkedAt, 50, 40, 45},
		[]any{"Mokihana", checkedAt, 30, 40, 45},
	)

	rec, err := widget.RecordAt(table, 0)
	require.NoError(t, err)
	assert.Equal(t, 45, rec.Warning)

	r, err := widget.New(widget.Options{}, nil)
	require.NoError(t, err)

	res, err := r.Fragment("Lehua-A", table)
	require.NoError(t, err)
	assert.Equal(t, models.OverGoal, res.Status)

	res, err = r.Fragment("Mokihana", table)
	require.NoError(t, err)
	assert.Equal(t, models.UnderGoal, res.Status)
	assert.Equal(t, "Your lounge is currently beating the goal by 10 kWh. Great job!", res.Caption)
}
