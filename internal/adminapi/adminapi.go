package adminapi

// Init registers every admin API route on the web server
func Init() {
	registerOrderRoutes()
	registerTripRoutes()
	registerPriceRoutes()
	registerMasterRoutes()
	registerExpenseRoutes()
	registerSubscriptionRoutes()
	registerSystemRoutes()
	registerSchedulerRoutes()
}
