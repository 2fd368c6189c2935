package export

// Sales category GUID tables per location, keyed by the category GUIDs the
// Toast API reports on each selection. Selections whose GUID is absent fall
// into "Other".
var locationCategories = map[int]map[string]string{
	// Location 1 (Elena's - West Portal)
	1: {
		"bcd1b36a-8ff1-48cf-9190-084cc0c78776": "Food",
		"ad216e1f-aae1-4c7e-a664-7bd1497bea2f": "NA Beverage",
		"59c5ad7d-a3c2-48a9-bc4a-b7a1217f6592": "Liquor",
		"b931698b-5fd1-44a1-9b51-8e013202cc8e": "Draft Beer",
		"1d06f0a0-6643-4942-aace-9de852bcd5a2": "Bottled Beer",
		"3276434c-d165-4c43-90f8-9a3032dcf5a7": "Wine",
	},
	// Location 2 (Little Original Joe's - West Portal)
	2: {
		"32a8246e-febc-46fd-aead-ea4f3e88d258": "Food",
		"739c715d-3c4f-4230-ae68-0abac14fa9d4": "Market",
		"89911839-70f0-43fc-af9d-582fbf906ddb": "Wine Bottle",
	},
	// Location 3 (Little Original Joe's - Marina)
	3: {
		"53269235-c054-45f6-9f63-ece5dac6a174": "Food",
		"adba1578-989b-4f8c-b300-6f516bbf0065": "NA Beverage",
		"1f58d463-1610-4032-8b05-003e2d9fb828": "Liquor",
		"1d9b2997-0a7c-41ae-b995-c19823c584f6": "Beer Bottle",
		"e67839f8-4e28-4d42-9e9c-34b40787fb6b": "Beer Keg",
		"681460a5-608f-42b5-bdbb-f6a9263d92f2": "Wine Bottle",
		"57f0e230-b508-4406-ba2d-0210a60aabc4": "Wine Keg",
	},
	// Location 4 (Original Joe's - North Beach)
	4: {
		"758a34df-b27f-419a-81b8-2c56a663f15b": "Food",
		"64a6a7fb-f3ce-4f2f-936d-39118bda785f": "NA Beverage",
		"dc3bad48-66ff-4183-9cd3-7a3552ab5973": "Liquor",
		"ef6790cb-64f3-4887-84b2-fd348dac46a9": "Beer Bottle",
		"fcd1cbdc-361f-4f66-93f2-53467adfd134": "Beer Keg",
		"d0ea6c37-bf62-415a-a40d-6a4a824bb661": "Wine Bottle",
		"3e611002-7c96-4b20-a228-a05efc70c2c3": "Wine Keg",
	},
	// Location 5 (Original Joe's - Westlake)
	5: {
		"87cad208-2fe9-4099-ba3d-da367a951b05": "Food",
		"6a7eb3d6-27d0-44d2-883b-c2615ac13f1a": "NA Beverage",
		"5b57fb6c-89fb-404f-8358-357cc51c62bd": "Liquor",
		"30a4bc57-ad0c-466a-887d-5ea0387c1efc": "Beer Bottle",
		"e4566b76-1f88-4e8c-a90d-2f8a00543f04": "Beer Keg",
		"d647c1b5-e55d-4b3e-b1b0-c2272fbc75ee": "Wine Bottle",
		"30812d57-5b44-48a0-8150-498d6287d5d3": "Wine Keg",
	},
}

// categoriesForLocation returns the category table for the location, falling
// back to location 4's table for unknown indexes so an unexpected location
// still produces a usable (if coarse) report.
func categoriesForLocation(index int) map[string]string {
	if categories, ok := locationCategories[index]; ok {
		return categories
	}
	return locationCategories[4]
}
