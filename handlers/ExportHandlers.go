package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"portal/models"
	"portal/services"
	"portal/utils"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

var tenderExportHeader = []string{"Tender No", "Title", "Type", "Category", "Status", "Submission Deadline", "Estimated Value", "Currency"}

// loadTendersForExport runs the same fetch/fallback/normalize/filter pipeline
// the listing endpoint uses, without pagination.
func loadTendersForExport(c *gin.Context, session *models.Session) []models.Tender {
	params := parseListParams(c)
	raw, _ := fetchOrFallback(c, resourceTenders, map[string]string{
		"status":      params.Status,
		"tender_type": params.Type,
		"category":    params.Category,
		"search":      params.Search,
	}, session, utils.DefaultUpstreamTimeout, services.FallbackTenders)

	ids := services.NewSlugSet()
	tenders := make([]models.Tender, 0, len(raw))
	for _, r := range raw {
		tenders = append(tenders, services.NormalizeTender(r, ids))
	}
	tenders = services.FilterTenders(tenders, params)
	services.SortTenders(tenders)
	return tenders
}

func tenderExportRow(t models.Tender) []string {
	return []string{
		t.TenderNo,
		t.Title,
		t.TenderType,
		t.Category,
		t.Status,
		t.SubmissionDeadline,
		strconv.FormatFloat(t.EstimatedValue, 'f', 2, 64),
		t.Currency,
	}
}

// ExportTendersCSV downloads the filtered tender list as CSV.
// @Summary      Export tenders as CSV
// @Tags         export
// @Produce      text/csv
// @Success      200  {file}  file  "CSV file"
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/export_tenders [get]
func ExportTendersCSV() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		tenders := loadTendersForExport(c, session)

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment;filename=tenders_export.csv")

		writer := csv.NewWriter(c.Writer)
		defer writer.Flush()

		if err := writer.Write(tenderExportHeader); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
			return
		}
		for _, t := range tenders {
			if err := writer.Write(tenderExportRow(t)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
				return
			}
		}
	}
}

// ExportTendersExcel downloads the filtered tender list as an XLSX workbook.
// @Summary      Export tenders as Excel
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200  {file}  file  "XLSX file"
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/export_tenders_excel [get]
func ExportTendersExcel() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := requireSession(c)
		if !ok {
			return
		}
		tenders := loadTendersForExport(c, session)

		f := excelize.NewFile()
		defer f.Close()
		sheet := "Tenders"
		index, err := f.NewSheet(sheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating sheet", "details": err.Error()})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		for col, h := range tenderExportHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(sheet, cell, h)
		}
		for rowIdx, t := range tenders {
			row := tenderExportRow(t)
			for col, v := range row {
				cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
				f.SetCellValue(sheet, cell, v)
			}
			// Keep the value column numeric in the workbook
			cell, _ := excelize.CoordinatesToCellName(7, rowIdx+2)
			f.SetCellValue(sheet, cell, t.EstimatedValue)
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=tenders_export_%d.xlsx", len(tenders)))
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing workbook", "details": err.Error()})
		}
	}
}
