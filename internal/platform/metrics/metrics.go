package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerOperations 服务层操作次数
	LedgerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finplan_ledger_operations_total",
			Help: "Ledger and plan operations by result",
		},
		[]string{"operation", "status"},
	)

	// Rejections 业务拒绝次数 (按原因)
	Rejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finplan_rejections_total",
			Help: "Rejected operations by reason",
		},
		[]string{"reason"},
	)

	// PlanChains 自动生成的交易链
	PlanChains = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finplan_plan_chains_total",
			Help: "Auto chains materialized by purpose",
		},
		[]string{"purpose"},
	)

	// PlannedTransactions 生成的计划交易行数
	PlannedTransactions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finplan_planned_transactions_total",
			Help: "Planned transactions materialized from schedules",
		},
	)

	// HTTPRequests HTTP 请求
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finplan_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)
