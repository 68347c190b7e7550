package core

import "strings"

// Bucket is the coarse spending category derived from a transaction.
type Bucket string

const (
	BucketFood          Bucket = "food"
	BucketClothes       Bucket = "clothes"
	BucketJewellery     Bucket = "jewellery"
	BucketDailyNeeds    Bucket = "daily_needs"
	BucketMiscellaneous Bucket = "miscellaneous"
	BucketIncome        Bucket = "income"
)

// BucketRule pairs a bucket with the keywords that select it.
type BucketRule struct {
	Bucket   Bucket   `json:"bucket"`
	Keywords []string `json:"keywords"`
}

// Order matters: the first matching rule wins.
var bucketRules = []BucketRule{
	{BucketFood, []string{"food", "hotel", "restaurant", "zomato", "swiggy", "meal", "dinner", "lunch", "breakfast", "groceries"}},
	{BucketClothes, []string{"clothes", "apparel", "garment", "shopping", "shirt", "pant", "dress", "shoe"}},
	{BucketJewellery, []string{"jewellery", "jewelry", "ornament", "gold", "silver", "ring", "necklace"}},
	{BucketDailyNeeds, []string{"daily", "needs", "utility", "toiletries", "soap", "milk", "bread", "vegetable"}},
}

// Classify assigns the bucket for a transaction. Income always lands in the
// income bucket; expenses are matched by keyword substring over the
// lower-cased category and note, falling back to miscellaneous.
func Classify(t TxType, category, note string) Bucket {
	if t == Income {
		return BucketIncome
	}
	text := strings.ToLower(category + " " + note)
	for _, r := range bucketRules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Bucket
			}
		}
	}
	return BucketMiscellaneous
}

// Buckets returns a copy of the keyword table in match order.
func Buckets() []BucketRule {
	out := make([]BucketRule, len(bucketRules))
	for i, r := range bucketRules {
		out[i] = BucketRule{Bucket: r.Bucket, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// ExpenseBuckets lists every bucket an expense can land in, in match order.
func ExpenseBuckets() []Bucket {
	out := make([]Bucket, 0, len(bucketRules)+1)
	for _, r := range bucketRules {
		out = append(out, r.Bucket)
	}
	return append(out, BucketMiscellaneous)
}

// ParseBucket validates a bucket name from user input.
func ParseBucket(s string) (Bucket, bool) {
	b := Bucket(strings.ToLower(strings.TrimSpace(s)))
	switch b {
	case BucketFood, BucketClothes, BucketJewellery, BucketDailyNeeds, BucketMiscellaneous, BucketIncome:
		return b, true
	}
	return "", false
}
