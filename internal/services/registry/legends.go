package registry

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/scriba/internal/models"
)

// Legend builders render an extracted report as the text lines shown on
// the annotation side panel. Each builder decodes the report map back
// into its record type for field access.

func decodeReport(report map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func makeAlbaranLegend(report map[string]interface{}) []string {
	var r models.AlbaranReport
	if err := decodeReport(report, &r); err != nil {
		return nil
	}

	moneda := r.Moneda
	if moneda == "" {
		moneda = "EUR"
	}

	lines := []string{
		fmt.Sprintf("Delivery Note: %s", r.NumeroAlbaran),
		fmt.Sprintf("Fecha: %s", r.FechaAlbaran),
		fmt.Sprintf("Empresa: %s", r.NombreEmpresa),
	}
	if r.NifCif != nil && *r.NifCif != "" {
		lines = append(lines, fmt.Sprintf("NIF/CIF: %s", *r.NifCif))
	}
	if len(r.Productos) > 0 {
		lines = append(lines, "", "Productos:")
		for i, p := range r.Productos {
			if i >= 5 {
				break
			}
			qty := "?"
			if p.Cantidad != 0 {
				qty = fmt.Sprintf("%g", p.Cantidad)
			}
			unidad := ""
			if p.Unidad != nil {
				unidad = *p.Unidad
			}
			lines = append(lines, fmt.Sprintf("  %d. %s (%s %s)", i+1, p.Producto, qty, unidad))
		}
	}
	lines = append(lines, "", fmt.Sprintf("Base: %.2f %s", r.BaseImponible, moneda))
	if r.ImporteImpuestos != nil && *r.ImporteImpuestos != 0 {
		lines = append(lines, fmt.Sprintf("IVA: %.2f", *r.ImporteImpuestos))
	}
	lines = append(lines, fmt.Sprintf("Total: %.2f %s", r.TotalAlbaran, moneda))
	return lines
}

func makeBankLegend(report map[string]interface{}) []string {
	var r models.BankStatement
	if err := decodeReport(report, &r); err != nil {
		return nil
	}

	var lines []string
	if r.Banco != nil && *r.Banco != "" {
		lines = append(lines, fmt.Sprintf("Banco: %s", *r.Banco))
	}
	if r.Titular != nil && *r.Titular != "" {
		lines = append(lines, fmt.Sprintf("Titular: %s", *r.Titular))
	}
	if r.Iban != nil && *r.Iban != "" {
		lines = append(lines, fmt.Sprintf("IBAN: %s", *r.Iban))
	}
	if r.PeriodoDesde != nil && *r.PeriodoDesde != "" && r.PeriodoHasta != nil && *r.PeriodoHasta != "" {
		lines = append(lines, fmt.Sprintf("Período: %s a %s", *r.PeriodoDesde, *r.PeriodoHasta))
	}
	if r.SaldoInicial != nil {
		lines = append(lines, fmt.Sprintf("Saldo inicial: %.2f %s", *r.SaldoInicial, r.Moneda))
	}
	if len(r.Lineas) > 0 {
		lines = append(lines, "", "Transacciones:")
		for i, linea := range r.Lineas {
			if i >= 10 {
				break
			}
			sign := ""
			if linea.Importe >= 0 {
				sign = "+"
			}
			lines = append(lines, fmt.Sprintf("  %d. %s: %s%.2f - %s",
				i+1, linea.Fecha, sign, linea.Importe, truncateRunes(linea.Concepto, 40)))
		}
	}
	if r.SaldoFinal != nil {
		lines = append(lines, "", fmt.Sprintf("Saldo final: %.2f %s", *r.SaldoFinal, r.Moneda))
	}
	return lines
}

func makePayrollLegend(report map[string]interface{}) []string {
	var r models.PayrollReport
	if err := decodeReport(report, &r); err != nil {
		return nil
	}

	var lines []string
	if r.EmpresaNif != nil && *r.EmpresaNif != "" {
		lines = append(lines, fmt.Sprintf("Empresa NIF: %s", *r.EmpresaNif))
	}
	if r.EmpleadoDni != nil && *r.EmpleadoDni != "" {
		lines = append(lines, fmt.Sprintf("Empleado DNI: %s", *r.EmpleadoDni))
	}
	if r.Periodo != nil && *r.Periodo != "" {
		lines = append(lines, fmt.Sprintf("Período: %s", *r.Periodo))
	}
	if r.Categoria != nil && *r.Categoria != "" {
		lines = append(lines, fmt.Sprintf("Categoría: %s", *r.Categoria))
	}
	if r.Iban != nil && *r.Iban != "" {
		lines = append(lines, fmt.Sprintf("IBAN: %s", *r.Iban))
	}
	if len(r.Devengos) > 0 {
		lines = append(lines, "", "Devengos:")
		for i, d := range r.Devengos {
			if i >= 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("  %d. %s: %.2f EUR", i+1, d.Concepto, d.Importe))
		}
	}
	if len(r.Deducciones) > 0 {
		lines = append(lines, "", "Deducciones:")
		for i, d := range r.Deducciones {
			if i >= 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("  %d. %s: %.2f EUR", i+1, d.Concepto, d.Importe))
		}
	}
	lines = append(lines, "")
	if r.Bruto != nil {
		lines = append(lines, fmt.Sprintf("Bruto: %.2f EUR", *r.Bruto))
	}
	if r.TotalDeducciones != nil {
		lines = append(lines, fmt.Sprintf("Total deducciones: %.2f EUR", *r.TotalDeducciones))
	}
	if r.Neto != nil {
		lines = append(lines, fmt.Sprintf("Neto: %.2f EUR", *r.Neto))
	}
	return lines
}

// truncateRunes caps s at n characters, counting runes so multi-byte
// characters never get split.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
