// Package export renders stored standings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"tft-tracker/internal/domain"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Standings"

// WriteStandingsXLSX writes one row per player in leaderboard order.
// displayNames maps player ids to names; unknown ids are written as is.
func WriteStandingsXLSX(w io.Writer, snap *domain.Snapshot, lobbySize int, displayNames map[string]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := writeRow(f, 1, header(lobbySize)); err != nil {
		return err
	}

	for i, s := range snap.Standings {
		name := displayNames[s.PlayerID]
		if name == "" {
			name = s.PlayerID
		}

		row := []any{s.Rank, s.PlayerID, name, s.TotalPoints, s.GamesPlayed, s.TopFourCount, s.TopFourPlusFirsts}
		for p := 0; p < lobbySize; p++ {
			count := 0
			if p < len(s.PlacementCounts) {
				count = s.PlacementCounts[p]
			}
			row = append(row, count)
		}
		row = append(row, joinInts(s.RecentPlacements), s.EndOfDayPlacement)

		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func header(lobbySize int) []any {
	cols := []any{"Rank", "Player ID", "Player", "Points", "Games", "Top 4", "Top 4 + 1sts"}
	for p := 1; p <= lobbySize; p++ {
		cols = append(cols, ordinal(p))
	}
	return append(cols, "Recent", "End of day")
}

func writeRow(f *excelize.File, rowNum int, values []any) error {
	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to resolve row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheetName, axis, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}

func ordinal(n int) string {
	suffix := "th"
	switch n {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
