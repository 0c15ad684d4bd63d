// Package types defines the meal record model, the date-keyed collection,
// the Store contract, and the standard error types for mealbook.
//
// Every record filed in a MealsByDate carries the date of the key it is filed
// under. Operations in internal/diary take a collection and return a new one;
// nothing in this package keeps state between calls.
package types
