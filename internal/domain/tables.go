package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOprLog{},
	// Catalog and pricing
	&Province{},
	&CatalogItem{},
	&Price{},
	&ResellerPriceList{},
	&ResellerPrice{},
	// Master
	&Client{},
	&Seller{},
	&Reseller{},
	&Supplier{},
	&Installer{},
	// Sales
	&Order{},
	&OrderItem{},
	// Fleet
	&Vehicle{},
	&Driver{},
	&Trip{},
	&TripOrder{},
	// Finance
	&FinanceCategory{},
	&FinanceSubcategory{},
	&FinancePaymentMethod{},
	&FinanceVendor{},
	&Expense{},
	&Subscription{},
	&SubscriptionExpense{},
}
