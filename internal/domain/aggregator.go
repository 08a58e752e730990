package domain

// NextTemplateRating folds one rating into a template's running statistics.
//
// The first rating becomes the average. After that the average is the
// floored integer mean:
//
//	newAvg = (avg*count + rating) / (count + 1)
//
// All arithmetic is uint64. With averages bounded by MaxRating the product
// cannot overflow before count exceeds 1.8e17 ratings.
func NextTemplateRating(count, avg uint64, rating uint8) (newCount, newAvg uint64) {
	newCount = count + 1
	if count == 0 {
		return newCount, uint64(rating)
	}
	return newCount, (avg*count + uint64(rating)) / newCount
}

// NextReputation applies the exponentially weighted reputation update with
// weight 0.9 on history and 0.1 on the new sample:
//
//	newScore = floor(0.9*score) + floor(0.1*rating)
//
// The two floors are taken independently before summing. This biases the
// score slightly downward compared with a single floor and must be kept for
// compatibility with existing scores.
func NextReputation(score, rating uint8) uint8 {
	// uint16 keeps score*9 from wrapping.
	return uint8(uint16(score)*9/10 + uint16(rating)/10)
}
