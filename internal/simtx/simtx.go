// Пакет simtx — симулируемая транзакция: единица работы выполняется
// внутри транзакции, которая БЕЗУСЛОВНО откатывается — и на успешном,
// и на ошибочном пути. Центральный инвариант слоя: ни одна мутация,
// прошедшая через simtx, никогда не становится долговечной.
//
// Жизненный цикл одного вызова:
//
//	IDLE → CONNECTED → TX_OPEN → WORK_RUNNING → ROLLING_BACK → DONE
//
// Экземпляр не переиспользуется, вложенные вызовы не поддерживаются.
package simtx

import (
	"context"
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/shopsim/internal/apperr"
	"github.com/bigkaa/shopsim/internal/sqlerr"
)

// serverErrMessage — обобщённое сообщение ServerError.
// Детали исходной ошибки уходят только в Raw.
const serverErrMessage = "Unexpected server error"

// simulatedTxTotal — счётчик симулируемых транзакций по исходу.
var simulatedTxTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ss_simulated_tx_total",
		Help: "Количество симулируемых транзакций по исходу",
	},
	[]string{"outcome"},
)

// UnitOfWork — единица работы, выполняемая внутри открытой транзакции.
// Возвращённый результат отдаётся вызывающему уже после отката.
type UnitOfWork[T any] func(ctx context.Context, tx *sql.Tx) (T, error)

// Run выполняет work в симулируемой транзакции на выделенном соединении.
//
// Нормализация ошибок: ошибка отката классифицируется через sqlerr и
// имеет приоритет над результатом единицы работы (неоткаченная
// транзакция — более серьёзный риск целостности). Ошибка из закрытого
// набора apperr пробрасывается без изменений; любая другая оборачивается
// в ServerError с сохранением исходного текста в Raw.
func Run[T any](ctx context.Context, db *sql.DB, work UnitOfWork[T]) (T, error) {
	var zero T

	// IDLE → CONNECTED: свежее выделенное соединение на время вызова
	conn, err := db.Conn(ctx)
	if err != nil {
		simulatedTxTotal.WithLabelValues("conn_error").Inc()
		return zero, apperr.NewServer(serverErrMessage, err.Error())
	}
	defer conn.Close()

	// CONNECTED → TX_OPEN
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		simulatedTxTotal.WithLabelValues("begin_error").Inc()
		return zero, apperr.NewServer(serverErrMessage, err.Error())
	}

	// TX_OPEN → WORK_RUNNING
	result, workErr := work(ctx, tx)

	// → ROLLING_BACK: откат и на успешном, и на ошибочном пути
	if rbErr := tx.Rollback(); rbErr != nil {
		simulatedTxTotal.WithLabelValues("rollback_error").Inc()
		return zero, sqlerr.Classify(rbErr)
	}

	// → DONE
	if workErr != nil {
		if apperr.IsAppError(workErr) {
			simulatedTxTotal.WithLabelValues("client_error").Inc()
			return zero, workErr
		}
		simulatedTxTotal.WithLabelValues("server_error").Inc()
		return zero, apperr.NewServer(serverErrMessage, workErr.Error())
	}

	simulatedTxTotal.WithLabelValues("ok").Inc()
	return result, nil
}
