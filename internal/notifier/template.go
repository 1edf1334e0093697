package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/nitesh/bill_monitor/pkg/models"
)

// genitive month names as used in Ukrainian dates ("1 березня 2024 р.")
var ukMonths = [...]string{
	"січня", "лютого", "березня", "квітня", "травня", "червня",
	"липня", "серпня", "вересня", "жовтня", "листопада", "грудня",
}

func longDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d р.", t.Day(), ukMonths[t.Month()-1], t.Year())
}

func shortDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// Subject returns the digest mail subject for the report day.
func Subject(day time.Time) string {
	return fmt.Sprintf("Щоденний дайджест законодавства (%s)", shortDate(day))
}

type tagStyle struct {
	Background, Color, Border string
}

var categoryStyles = map[models.Category]tagStyle{
	models.Agricultural: {"#dcfce7", "#166534", "#86efac"},
	models.Social:       {"#dbeafe", "#1e40af", "#93c5fd"},
	models.Corporate:    {"#fefce8", "#854d0e", "#fde047"},
}

var defaultTagStyle = tagStyle{"#f3f4f6", "#374151", "#d1d5db"}

func styleFor(c models.Category) template.CSS {
	s, ok := categoryStyles[c]
	if !ok {
		s = defaultTagStyle
	}
	return template.CSS(fmt.Sprintf(
		"display:inline-block;padding:4px 10px;margin:0 4px 4px 0;font-size:12px;font-weight:500;border-radius:12px;border:1px solid %s;background-color:%s;color:%s",
		s.Border, s.Background, s.Color))
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"tagStyle": styleFor,
}).Parse(`<!DOCTYPE html>
<html lang="uk">
<head><meta charset="utf-8"><title>Щоденний дайджест законодавства</title></head>
<body style="background-color:#f6f9fc;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,'Helvetica Neue',Ubuntu,sans-serif">
<div style="display:none">{{.Preview}}</div>
<div style="background-color:#ffffff;margin:0 auto;padding:20px;border:1px solid #eee;border-radius:5px">
<h1 style="font-size:24px;font-weight:bold;color:#333;line-height:1.4">Щоденний дайджест законодавства</h1>
<p style="font-size:16px;line-height:1.6;color:#555">Звіт за {{.ReportDate}}</p>
<hr style="border-color:#e6ebf1;margin:20px 0">
{{range .Bills}}<div style="margin:24px 0">
<a href="{{.URL}}" style="color:#007bff;text-decoration:none"><p style="font-size:18px;font-weight:600;margin:0;color:#111827">{{.Number}}: {{.Title}}</p></a>
<p style="font-size:14px;color:#6b7280;margin:4px 0 0 0">Дата реєстрації: {{.Date}}</p>
<div style="margin-top:12px">{{range .Categories}}<span style="{{tagStyle .}}">{{.}}</span>{{end}}</div>
</div>
{{end}}<hr style="border-color:#e6ebf1;margin:20px 0">
<p style="color:#8898aa;font-size:12px;line-height:1.5">Цей лист згенеровано автоматично системою &quot;Законодавчий Монітор&quot;.</p>
</div>
</body>
</html>
`))

type digestView struct {
	Preview    string
	ReportDate string
	Bills      []models.DigestBill
}

// Render produces the HTML body of a digest for the given report day.
func Render(bills []models.DigestBill, day time.Time) (string, error) {
	view := digestView{
		Preview:    fmt.Sprintf("Знайдено %d нових законопроєктів, що відповідають вашим критеріям.", len(bills)),
		ReportDate: longDate(day),
		Bills:      bills,
	}
	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render digest: %w", err)
	}
	return buf.String(), nil
}

// RenderText produces the plain-text alternative of a digest.
func RenderText(bills []models.DigestBill, day time.Time) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Щоденний дайджест законодавства\nЗвіт за %s\n\n", longDate(day))
	for _, b := range bills {
		fmt.Fprintf(&buf, "%s: %s\nДата реєстрації: %s\n", b.Number, b.Title, b.Date)
		for i, c := range b.Categories {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(string(c))
		}
		fmt.Fprintf(&buf, "\n%s\n\n", b.URL)
	}
	return buf.String()
}
