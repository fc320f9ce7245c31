package reports

import (
	"context"
	"fmt"
	"net/http"

	"bitbucket.org/ginoconcreto/estoque_backend/models"
	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// BuildStockWorkbook projects one usina's snapshot, estimates and capped
// history into a spreadsheet. Pure: no store interaction.
func BuildStockWorkbook(usina models.Usina, snapshot models.StockSnapshot, estimates models.Estimates, history []*models.HistoryEntry) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Estoque"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetCellValue(sheet, "A1", "GINO CONCRETO - Relatório de Controle de Estoque")
	f.SetCellValue(sheet, "A2", fmt.Sprintf("Usina: %s", usina))

	f.SetCellValue(sheet, "A4", "Material")
	f.SetCellValue(sheet, "B4", "Saldo")
	f.SetCellValue(sheet, "C4", "Situação")

	row := 5
	for _, material := range models.Materials {
		quantity := snapshot[material]
		situation := "OK"
		if material.IsLowStock(quantity) {
			situation = "ESTOQUE BAIXO"
		}
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), string(material))
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), utils.FormatKg(quantity))
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), situation)
		row++
	}

	row++
	f.SetCellValue(sheet, "A"+fmt.Sprint(row), "Capacidade de produção")
	row++
	f.SetCellValue(sheet, "A"+fmt.Sprint(row), "Cargas restantes")
	f.SetCellValue(sheet, "B"+fmt.Sprint(row), estimates.MaxLoads)
	row++
	f.SetCellValue(sheet, "A"+fmt.Sprint(row), "Volume total")
	f.SetCellValue(sheet, "B"+fmt.Sprint(row), utils.FormatM3(decimal.NewFromInt(estimates.TotalM3)))

	row += 2
	f.SetCellValue(sheet, "A"+fmt.Sprint(row), "Histórico recente")
	row++
	f.SetCellValue(sheet, "A"+fmt.Sprint(row), "Data")
	f.SetCellValue(sheet, "B"+fmt.Sprint(row), "Ação")
	f.SetCellValue(sheet, "C"+fmt.Sprint(row), "Detalhes")
	row++
	for _, entry := range models.TrimHistories(history) {
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), entry.CreatedAt.Format("02/01/2006 15:04"))
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), string(entry.Action))
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), entry.Details)
		row++
	}

	return f, nil
}

// WriteStockReport fetches the usina's current data and streams the
// workbook as an attachment.
func WriteStockReport(ctx context.Context, w http.ResponseWriter, usina models.Usina) error {
	items, err := models.ListStockItems(ctx)
	if err != nil {
		return err
	}
	history, err := models.ListHistories(ctx, usina)
	if err != nil {
		return err
	}

	snapshot := models.SnapshotFromItems(items, usina)
	f, err := BuildStockWorkbook(usina, snapshot, models.CalculateEstimates(snapshot), history)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=estoque-%s.xlsx", usina))
	return f.Write(w)
}
