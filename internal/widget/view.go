package widget

import (
	"fmt"
	"html/template"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/jgoulah/energygoal/pkg/models"
)

var stoplightFiles = map[models.Status]string{
	models.OverGoal:  "stop_light_red.png",
	models.NearGoal:  "stop_light_yellow.png",
	models.UnderGoal: "stop_light_green.png",
}

const widgetTemplate = `{{define "consumption"}}<table cellpadding="5">` +
	`<tr><td valign="top" style="{{.TitleStyle}}">{{.Title}} <br>(So Far)</td></tr>` +
	`<tr><td style="text-align: center; font-size: 2.5em; font-weight: bold">{{.Value}} kWh</td></tr>` +
	`</table>{{end}}` +
	`<table class="energy-goal" data-status="{{.Status}}" cellpadding="5" style="{{.TableStyle}}">` +
	`<tr>` +
	`<td class="actual" style="vertical-align: top" align="center">{{template "consumption" .Actual}}</td>` +
	`<td class="stoplight"><img src="{{.Stoplight.Src}}" alt="{{.Stoplight.Alt}}" /></td>` +
	`<td class="goal" style="vertical-align: top" align="center">{{template "consumption" .Goal}}</td>` +
	`</tr>` +
	`<tr><td class="caption" colspan="3" style="{{.CaptionStyle}}">{{.Caption}}</td></tr>` +
	`<tr><td class="last-check" colspan="3" style="font-size: 0.7em">Last check: {{.LastCheck}}</td></tr>` +
	`</table>`

var widgetTmpl = template.Must(template.New("widget").Parse(widgetTemplate))

type consumptionCell struct {
	Title      string
	Value      string
	TitleStyle template.CSS
}

type stoplight struct {
	Src string
	Alt string
}

// view is everything the template needs, computed up front
type view struct {
	Status       string
	TableStyle   template.CSS
	CaptionStyle template.CSS
	Actual       consumptionCell
	Goal         consumptionCell
	Stoplight    stoplight
	Caption      string
	LastCheck    string
}

func newView(opts Options, rec models.ConsumptionRecord, status models.Status, lastCheck string) view {
	titleStyle := declarations(Style{"text-align": "center", "vertical-align": "top"}, opts.TitleStyle)

	return view{
		Status: status.String(),
		TableStyle: declarations(Style{
			"background-color": opts.backgroundCSS(),
			"font-family":      "sans-serif",
			"text-align":       "center",
			"vertical-align":   "top",
			"width":            strconv.Itoa(opts.Width) + "px",
		}, opts.GlobalStyle),
		CaptionStyle: declarations(Style{"font-size": "0.8em"}, opts.CaptionStyle),
		Actual: consumptionCell{
			Title:      "Consumption Today",
			Value:      humanize.Comma(int64(rec.Actual)),
			TitleStyle: titleStyle,
		},
		Goal: consumptionCell{
			Title:      "Goal for Today",
			Value:      humanize.Comma(int64(rec.Goal)),
			TitleStyle: titleStyle,
		},
		Stoplight: stoplight{
			Src: opts.AssetPath + stoplightFiles[status],
			Alt: status.Color() + " light",
		},
		Caption:   Caption(opts.Subject, rec),
		LastCheck: lastCheck,
	}
}

// Caption describes how the record compares to its goal
func Caption(subject string, rec models.ConsumptionRecord) string {
	switch rec.Classify() {
	case models.OverGoal:
		return fmt.Sprintf("%s is currently over the goal by %s kWh. See below for ways to conserve.",
			subject, humanize.Comma(int64(rec.Actual-rec.Goal)))
	case models.NearGoal:
		return fmt.Sprintf("%s is currently making the goal, but just barely (%s kWh). See below for ways to conserve.",
			subject, humanize.Comma(int64(rec.Goal-rec.Actual)))
	default:
		return fmt.Sprintf("%s is currently beating the goal by %s kWh. Great job!",
			subject, humanize.Comma(int64(rec.Goal-rec.Actual)))
	}
}
