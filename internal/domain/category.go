package domain

// DefaultCategoryIcon is shown for any category key outside the catalog.
const DefaultCategoryIcon = "MoreHorizontal"

// CategoryOther is valid for both bill types.
const CategoryOther = "other"

// CategoryInfo is the display data attached to a category key.
type CategoryInfo struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Icon  string     `json:"icon"`
	Types []BillType `json:"types"`
}

var (
	expenseOnly = []BillType{BillTypeExpense}
	incomeOnly  = []BillType{BillTypeIncome}
	bothTypes   = []BillType{BillTypeExpense, BillTypeIncome}
)

// categoryCatalog is ordered the way the category pickers list them.
var categoryCatalog = []CategoryInfo{
	{Key: "food", Label: "餐饮", Icon: "Utensils", Types: expenseOnly},
	{Key: "transport", Label: "交通", Icon: "Car", Types: expenseOnly},
	{Key: "shopping", Label: "购物", Icon: "ShoppingBag", Types: expenseOnly},
	{Key: "entertainment", Label: "娱乐", Icon: "Gamepad2", Types: expenseOnly},
	{Key: "housing", Label: "住房", Icon: "Home", Types: expenseOnly},
	{Key: "medical", Label: "医疗", Icon: "Heart", Types: expenseOnly},
	{Key: "education", Label: "教育", Icon: "GraduationCap", Types: expenseOnly},
	{Key: "salary", Label: "工资", Icon: "Wallet", Types: incomeOnly},
	{Key: "bonus", Label: "奖金", Icon: "Gift", Types: incomeOnly},
	{Key: "investment", Label: "投资", Icon: "TrendingUp", Types: incomeOnly},
	{Key: "gift", Label: "礼金", Icon: "Gift", Types: incomeOnly},
	{Key: CategoryOther, Label: "其他", Icon: DefaultCategoryIcon, Types: bothTypes},
}

var categoryIndex = func() map[string]CategoryInfo {
	idx := make(map[string]CategoryInfo, len(categoryCatalog))
	for _, c := range categoryCatalog {
		idx[c.Key] = c
	}
	return idx
}()

// LookupCategory returns the catalog entry for key.
func LookupCategory(key string) (CategoryInfo, bool) {
	c, ok := categoryIndex[key]
	return c, ok
}

// CategoryLabel returns the display label, or the raw key when unknown.
func CategoryLabel(key string) string {
	if c, ok := categoryIndex[key]; ok {
		return c.Label
	}
	return key
}

// CategoryIcon returns the icon name, or DefaultCategoryIcon when unknown.
func CategoryIcon(key string) string {
	if c, ok := categoryIndex[key]; ok {
		return c.Icon
	}
	return DefaultCategoryIcon
}

// CategoriesFor lists the categories a bill of type t may use, in picker order.
func CategoriesFor(t BillType) []CategoryInfo {
	out := make([]CategoryInfo, 0, len(categoryCatalog))
	for _, c := range categoryCatalog {
		if c.allows(t) {
			out = append(out, c)
		}
	}
	return out
}

// IsValidCategory reports whether key belongs to the category set of t.
func IsValidCategory(t BillType, key string) bool {
	c, ok := categoryIndex[key]
	return ok && c.allows(t)
}

func (c CategoryInfo) allows(t BillType) bool {
	for _, allowed := range c.Types {
		if allowed == t {
			return true
		}
	}
	return false
}
