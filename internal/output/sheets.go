package output

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/banzuke/banzuke/internal/core/basho"
	"github.com/banzuke/banzuke/internal/core/ratelimit"
	"github.com/banzuke/banzuke/internal/core/store"
	"github.com/banzuke/banzuke/internal/core/sumoapi"
)

// BashoIDs is a list of basho identifiers, newest first.
type BashoIDs []string

// sheet is one tabular section shared by the table and markdown renderers.
type sheet struct {
	title  string
	header []string
	rows   [][]string
	footer string
}

func sheetsFor(value any) ([]sheet, error) {
	if isNil(value) {
		return nil, nil
	}

	switch v := value.(type) {
	case *sumoapi.Banzuke:
		return []sheet{banzukeSheet(v)}, nil
	case sumoapi.Banzuke:
		return []sheet{banzukeSheet(&v)}, nil
	case *sumoapi.BashoResults:
		return bashoSheets(v), nil
	case sumoapi.BashoResults:
		return bashoSheets(&v), nil
	case *sumoapi.RikishiList:
		return []sheet{rikishiListSheet(v)}, nil
	case sumoapi.RikishiList:
		return []sheet{rikishiListSheet(&v)}, nil
	case *sumoapi.Rikishi:
		return []sheet{rikishiSheet(v)}, nil
	case sumoapi.Rikishi:
		return []sheet{rikishiSheet(&v)}, nil
	case ratelimit.Status:
		return []sheet{statusSheet(v)}, nil
	case *ratelimit.Status:
		return []sheet{statusSheet(*v)}, nil
	case BashoIDs:
		return []sheet{bashoIDSheet(v)}, nil
	case []store.CacheEntry:
		return []sheet{cacheSheet(v)}, nil
	default:
		return nil, fmt.Errorf("no tabular rendering for %T", value)
	}
}

func banzukeSheet(b *sumoapi.Banzuke) sheet {
	s := sheet{
		title:  strings.TrimSpace(fmt.Sprintf("%s %s", b.Division, labelForBasho(b.BashoID))),
		header: []string{"East", "Record", "Rank", "West", "Record"},
	}

	count := len(b.East)
	if len(b.West) > count {
		count = len(b.West)
	}
	for i := 0; i < count; i++ {
		var east, west *sumoapi.BanzukeEntry
		if i < len(b.East) {
			east = &b.East[i]
		}
		if i < len(b.West) {
			west = &b.West[i]
		}

		rank := ""
		switch {
		case east != nil:
			rank = rankLabel(east.Rank)
		case west != nil:
			rank = rankLabel(west.Rank)
		}
		s.rows = append(s.rows, []string{
			entryName(east), entryRecord(east), rank, entryName(west), entryRecord(west),
		})
	}
	s.footer = fmt.Sprintf("%d rikishi", len(b.East)+len(b.West))
	return s
}

func bashoSheets(r *sumoapi.BashoResults) []sheet {
	title := labelForBasho(r.Date)
	if r.Location != "" {
		title = strings.TrimSpace(title + " " + r.Location)
	}

	yusho := sheet{title: title, header: []string{"Division", "Yusho", "ID"}}
	for _, award := range r.Yusho {
		yusho.rows = append(yusho.rows, []string{award.Type, award.ShikonaEn, idCell(award.RikishiID)})
	}

	sheets := []sheet{yusho}
	if len(r.SpecialPrizes) > 0 {
		prizes := sheet{title: "Special prizes", header: []string{"Prize", "Rikishi", "ID"}}
		for _, award := range r.SpecialPrizes {
			prizes.rows = append(prizes.rows, []string{award.Type, award.ShikonaEn, idCell(award.RikishiID)})
		}
		sheets = append(sheets, prizes)
	}
	return sheets
}

func rikishiListSheet(l *sumoapi.RikishiList) sheet {
	s := sheet{header: []string{"ID", "Shikona", "Heya", "Rank", "Height", "Weight"}}
	for _, r := range l.Records {
		s.rows = append(s.rows, []string{
			idCell(r.ID), r.ShikonaEn, r.Heya, r.CurrentRank, measure(r.Height, "cm"), measure(r.Weight, "kg"),
		})
	}
	total := l.Total
	if total < len(l.Records) {
		total = len(l.Records)
	}
	s.footer = fmt.Sprintf("%d of %d", len(l.Records), total)
	return s
}

func rikishiSheet(r *sumoapi.Rikishi) sheet {
	s := sheet{title: r.ShikonaEn, header: []string{"Field", "Value"}}
	fields := [][2]string{
		{"ID", idCell(r.ID)},
		{"Shikona", strings.TrimSpace(r.ShikonaEn + " " + r.ShikonaJp)},
		{"Rank", r.CurrentRank},
		{"Heya", r.Heya},
		{"Shusshin", r.Shusshin},
		{"Birth date", shortDate(r.BirthDate)},
		{"Debut", labelForBasho(r.Debut)},
		{"Height", measure(r.Height, "cm")},
		{"Weight", measure(r.Weight, "kg")},
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		s.rows = append(s.rows, []string{field[0], field[1]})
	}
	return s
}

func statusSheet(st ratelimit.Status) sheet {
	s := sheet{title: "Upstream rate limit", header: []string{"Field", "Value"}}
	s.rows = [][]string{
		{"Max calls", strconv.Itoa(st.MaxCalls)},
		{"Window", st.Window.String()},
		{"In window", strconv.Itoa(st.InWindow)},
		{"Remaining", strconv.Itoa(st.Remaining)},
	}
	if st.Remaining == 0 {
		s.rows = append(s.rows, []string{"Next slot in", st.RetryIn.Round(time.Millisecond).String()})
	}
	return s
}

func bashoIDSheet(ids BashoIDs) sheet {
	s := sheet{header: []string{"Basho", "Date"}}
	for _, id := range ids {
		s.rows = append(s.rows, []string{id, basho.FormatDate(id)})
	}
	s.footer = fmt.Sprintf("%d basho", len(ids))
	return s
}

func cacheSheet(entries []store.CacheEntry) sheet {
	s := sheet{header: []string{"Key", "Size", "Hits", "Stored", "Expires", "Expired"}}
	for _, e := range entries {
		s.rows = append(s.rows, []string{
			e.Key,
			strconv.Itoa(e.Size),
			strconv.Itoa(e.Hits),
			e.StoredAt.UTC().Format(time.RFC3339),
			e.ExpiresAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(e.Expired),
		})
	}
	s.footer = fmt.Sprintf("%d entries", len(entries))
	return s
}

func labelForBasho(id string) string {
	if label := basho.FormatDate(id); label != "" {
		return label
	}
	return id
}

// rankLabel drops the side suffix: "Ozeki 1 East" becomes "Ozeki 1".
func rankLabel(rank string) string {
	rank = strings.TrimSpace(rank)
	for _, side := range []string{" East", " West"} {
		if strings.HasSuffix(rank, side) {
			return strings.TrimSuffix(rank, side)
		}
	}
	return rank
}

func entryName(e *sumoapi.BanzukeEntry) string {
	if e == nil {
		return ""
	}
	return e.ShikonaEn
}

func entryRecord(e *sumoapi.BanzukeEntry) string {
	if e == nil {
		return ""
	}
	record := fmt.Sprintf("%d-%d", e.Wins, e.Losses)
	if e.Absences > 0 {
		record += fmt.Sprintf("-%d", e.Absences)
	}
	return record
}

func idCell(id int) string {
	if id <= 0 {
		return ""
	}
	return strconv.Itoa(id)
}

func measure(value float64, unit string) string {
	if value <= 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + unit
}

func shortDate(value string) string {
	if len(value) >= len("2006-01-02") {
		if t, err := time.Parse("2006-01-02", value[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
