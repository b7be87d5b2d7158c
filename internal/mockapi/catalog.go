package mockapi

import "github.com/jemi-market/storefront-core/internal/model"

// seedCatalog возвращает стартовый каталог магазина. Цены указаны в
// минорных единицах валюты.
func seedCatalog() []model.Product {
	return []model.Product{
		{ID: "p-1", Name: "Ankara Print Shirt", Price: 4500, Stock: 12, Category: "fashion", SellerID: "s-1", SellerName: "Lagos Threads", Featured: true},
		{ID: "p-2", Name: "Leather Sandals", Price: 7800, Stock: 6, Category: "fashion", SellerID: "s-1", SellerName: "Lagos Threads"},
		{ID: "p-3", Name: "Wireless Earbuds", Price: 15500, Stock: 20, Category: "electronics", SellerID: "s-2", SellerName: "Gadget Hub", Featured: true},
		{ID: "p-4", Name: "Power Bank 20000mAh", Price: 9900, Stock: 15, Category: "electronics", SellerID: "s-2", SellerName: "Gadget Hub"},
		{ID: "p-5", Name: "Jollof Spice Mix", Price: 1200, Stock: 40, Category: "food", SellerID: "s-3", SellerName: "Mama Nkechi Foods"},
		{ID: "p-6", Name: "Zobo Drink 6-pack", Price: 2400, Stock: 25, Category: "food", SellerID: "s-3", SellerName: "Mama Nkechi Foods"},
		{ID: "p-7", Name: "Beaded Necklace", Price: 3200, Stock: 8, Category: "accessories", SellerID: "s-4", SellerName: "Adire Crafts", Featured: true},
		{ID: "p-8", Name: "Woven Tote Bag", Price: 5600, Stock: 10, Category: "accessories", SellerID: "s-4", SellerName: "Adire Crafts"},
	}
}
