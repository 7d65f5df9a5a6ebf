package models

import "time"

// Plan is a subscription product.
type Plan struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Duration      string   `json:"duration"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"original_price,omitempty"`
	Discount      int64    `json:"discount,omitempty"`
	Months        int      `json:"months"`
	Description   string   `json:"description"`
	Features      []string `json:"features"`
	Popular       bool     `json:"popular,omitempty"`
}

// Plans is the fixed product table, in display order.
var Plans = []Plan{
	{
		ID: "1month", Name: "1개월 구독", Duration: "1개월", Price: 15000, Months: 1,
		Description: "매월 신문 배송 (4회)",
		Features:    []string{"주 1회 배송", "온라인 열람", "독자후기 작성"},
	},
	{
		ID: "3months", Name: "3개월 구독", Duration: "3개월", Price: 40000, OriginalPrice: 45000, Discount: 5000, Months: 3,
		Description: "매월 신문 배송 (12회)",
		Features:    []string{"주 1회 배송", "온라인 열람", "독자후기 작성", "5,000원 할인"},
		Popular:     true,
	},
	{
		ID: "6months", Name: "6개월 구독", Duration: "6개월", Price: 75000, OriginalPrice: 90000, Discount: 15000, Months: 6,
		Description: "매월 신문 배송 (24회)",
		Features:    []string{"주 1회 배송", "온라인 열람", "독자후기 작성", "15,000원 할인", "특별 선물 증정"},
	},
	{
		ID: "12months", Name: "12개월 구독", Duration: "12개월", Price: 140000, OriginalPrice: 180000, Discount: 40000, Months: 12,
		Description: "매월 신문 배송 (48회)",
		Features:    []string{"주 1회 배송", "온라인 열람", "독자후기 작성", "40,000원 할인", "프리미엄 선물 증정"},
	},
}

// FindPlan looks up a plan by id.
func FindPlan(id string) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// PlanMonths returns the duration of a plan type. Unknown types count as one
// month.
func PlanMonths(planType string) int {
	if p, ok := FindPlan(planType); ok {
		return p.Months
	}
	return 1
}

// SubscriptionEnd computes the end date of a plan confirmed at start.
func SubscriptionEnd(planType string, start time.Time) time.Time {
	return start.AddDate(0, PlanMonths(planType), 0)
}
