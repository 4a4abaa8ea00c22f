package entities

// DailyMessages counts chatbot traffic for one day
type DailyMessages struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// SupervisorDashboard is the supervisor's overview of the pipeline
type SupervisorDashboard struct {
	RequestsByStatus    map[string]int      `json:"requests_by_status"`
	UnassignedRequests  int                 `json:"unassigned_requests"`
	PendingApplications int                 `json:"pending_applications"`
	ActiveBrokers       int                 `json:"active_brokers"`
	BlockedBrokers      int                 `json:"blocked_brokers"`
	Customers           int                 `json:"customers"`
	Messages            []DailyMessages     `json:"messages"`
	Brokers             []BrokerPerformance `json:"brokers"`
}
