package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/ginoconcreto/estoque_backend/config"
	"bitbucket.org/ginoconcreto/estoque_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
)

// ErrNotAdmin rejects mutating operations from non-admin sessions before
// any I/O happens.
var ErrNotAdmin = errors.New("Acesso negado: apenas administradores podem alterar o estoque.")

// ValidationError is malformed user input, rejected before any I/O.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func requireAdmin(ctx context.Context) error {
	role, ok := utils.GetUserRoleFromContext(ctx)
	if !ok || UserRole(role) != RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// ParseQuantity accepts the raw form value. decimal.NewFromString rejects
// NaN/Inf and non-numeric input outright, which is exactly the "finite
// number" contract the dashboard needs.
func ParseQuantity(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

// lockUsina serializes reconciliation per usina across instances. Redis
// lock is a best-effort optimization: the atomic in-store updates remain
// correct without it, the lock only narrows reread interleavings.
func lockUsina(ctx context.Context, usina Usina) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, "estoque:lock:"+string(usina), 10*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 50),
	})
	if err != nil {
		config.LogError(config.GetLogger(), "reconcile.go", "lockUsina", "Obtain", string(usina), err)
		return func() {}
	}
	return func() {
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			config.LogError(config.GetLogger(), "reconcile.go", "lockUsina", "Release", string(usina), err)
		}
	}
}

// rereadSnapshot is the tail of every mutating operation: the in-memory
// value shown to the user is whatever the store now holds, never the value
// this session computed locally.
func rereadSnapshot(ctx context.Context, usina Usina) (StockSnapshot, error) {
	items, err := ListStockItems(ctx)
	if err != nil {
		return nil, err
	}
	return SnapshotFromItems(items, usina), nil
}

func validateTarget(usina Usina, material Material) error {
	if !ValidUsina(string(usina)) {
		return &ValidationError{Msg: fmt.Sprintf("Usina desconhecida: %q.", usina)}
	}
	if !ValidMaterial(string(material)) {
		return &ValidationError{Msg: "Selecione um material e informe o peso corretamente."}
	}
	return nil
}

// ApplyManualEntry adds deltaKg to one material's stock, creating the row
// when the usina has none yet. The increment is evaluated at the store so
// concurrent entries from two admin sessions both land.
func ApplyManualEntry(ctx context.Context, usina Usina, material Material, rawDelta string) (StockSnapshot, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateTarget(usina, material); err != nil {
		return nil, err
	}
	delta, err := ParseQuantity(rawDelta)
	if err != nil {
		return nil, &ValidationError{Msg: "Selecione um material e informe o peso corretamente."}
	}

	release := lockUsina(ctx, usina)
	defer release()

	items, err := ListStockItems(ctx)
	if err != nil {
		return nil, err
	}

	if existing := latestStockItem(items, usina, material); existing != nil {
		err = IncrementStockItemQty(ctx, existing.ID, delta)
	} else {
		_, err = CreateStockItem(ctx, usina, material, delta)
	}
	if err != nil {
		return nil, err
	}

	sign := "+"
	if delta.IsNegative() {
		sign = ""
	}
	details := fmt.Sprintf("Lançamento manual: %s (%s%s kg)", material, sign, delta)
	if _, err := AppendHistory(ctx, usina, ActionEntrada, details); err != nil {
		return nil, err
	}

	publishChange(ctx, ChangeTableStock, ChangeKindUpdate)
	publishChange(ctx, ChangeTableHistory, ChangeKindInsert)
	return rereadSnapshot(ctx, usina)
}

// ApplyManualOverwrite sets one material's stock outright.
func ApplyManualOverwrite(ctx context.Context, usina Usina, material Material, rawQuantity string) (StockSnapshot, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateTarget(usina, material); err != nil {
		return nil, err
	}
	quantity, err := ParseQuantity(rawQuantity)
	if err != nil || quantity.IsNegative() {
		return nil, &ValidationError{Msg: "Informe um peso válido (maior ou igual a zero)."}
	}

	release := lockUsina(ctx, usina)
	defer release()

	items, err := ListStockItems(ctx)
	if err != nil {
		return nil, err
	}

	if existing := latestStockItem(items, usina, material); existing != nil {
		err = OverwriteStockItemQty(ctx, existing.ID, quantity)
	} else {
		_, err = CreateStockItem(ctx, usina, material, quantity)
	}
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("Saldo de %s alterado manualmente para %s", material, utils.FormatKg(quantity))
	if _, err := AppendHistory(ctx, usina, ActionReset, details); err != nil {
		return nil, err
	}

	publishChange(ctx, ChangeTableStock, ChangeKindUpdate)
	publishChange(ctx, ChangeTableHistory, ChangeKindInsert)
	return rereadSnapshot(ctx, usina)
}

// ApplyReportDeductions applies an extracted report as clamped subtractions
// across the usina's materials. Best-effort batch: each material's write is
// independent and a failure on one does not roll back the others (the store
// offers no cross-row transaction for this path). Deductions for materials
// without an existing row are skipped, never creating rows from a report.
func ApplyReportDeductions(ctx context.Context, usina Usina, extracted map[string]float64) (StockSnapshot, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !ValidUsina(string(usina)) {
		return nil, &ValidationError{Msg: fmt.Sprintf("Usina desconhecida: %q.", usina)}
	}

	deductions := NormalizeExtractedReport(extracted)

	release := lockUsina(ctx, usina)
	defer release()

	items, err := ListStockItems(ctx)
	if err != nil {
		return nil, err
	}

	attempted, failed := 0, 0
	for _, material := range Materials {
		deduction := deductions[material]
		if !deduction.IsPositive() {
			continue
		}
		existing := latestStockItem(items, usina, material)
		if existing == nil {
			continue
		}
		attempted++
		if err := DeductStockItemQty(ctx, existing.ID, deduction); err != nil {
			failed++
			config.LogError(config.GetLogger(), "reconcile.go", "ApplyReportDeductions", "DeductStockItemQty",
				map[string]any{"usina": usina, "material": material}, err)
		}
	}
	if attempted > 0 && failed == attempted {
		return nil, fmt.Errorf("%w: nenhuma dedução do relatório pôde ser aplicada", ErrStoreUnavailable)
	}

	if _, err := AppendHistory(ctx, usina, ActionSaidaRelatorio, "Relatório processado e estoque atualizado."); err != nil {
		return nil, err
	}

	publishChange(ctx, ChangeTableStock, ChangeKindUpdate)
	publishChange(ctx, ChangeTableHistory, ChangeKindInsert)
	return rereadSnapshot(ctx, usina)
}
