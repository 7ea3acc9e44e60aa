package types

import "time"

// TourCourseRequest describes a structured course request: a destination, a
// day count and a theme, plus optional preferences.
type TourCourseRequest struct {
	Destination         string   `json:"destination"`
	Days                int      `json:"days"`
	Theme               string   `json:"theme"` // 문화, 자연, 맛집, 쇼핑 ...
	Budget              string   `json:"budget,omitempty"`
	Transportation      string   `json:"transportation,omitempty"`
	Interests           []string `json:"interests,omitempty"`
	Accommodation       string   `json:"accommodation,omitempty"`
	TravelStyle         string   `json:"travelStyle,omitempty"`
	SpecialRequirements string   `json:"specialRequirements,omitempty"`
}

// SpotVisit is one scheduled stop inside a day plan.
type SpotVisit struct {
	Spot      SpotRecord `json:"spot"`
	VisitTime string     `json:"visitTime,omitempty"`
	Duration  int        `json:"duration,omitempty"` // minutes
	Activity  string     `json:"activity,omitempty"`
	Notes     string     `json:"notes,omitempty"`
	Order     int        `json:"order"`
}

// DayPlan is the schedule for one day of a course.
type DayPlan struct {
	DayNumber      int         `json:"dayNumber"`
	DayTitle       string      `json:"dayTitle"`
	Overview       string      `json:"overview,omitempty"`
	Spots          []SpotVisit `json:"spots"`
	Transportation string      `json:"transportation,omitempty"`
	Accommodation  string      `json:"accommodation,omitempty"`
	Meals          string      `json:"meals,omitempty"`
	EstimatedCost  string      `json:"estimatedCost,omitempty"`
	Tips           string      `json:"tips,omitempty"`
}

// TourCourse is a generated multi-day course. A course always carries exactly
// as many day plans as the request asked for.
type TourCourse struct {
	CourseID           string    `json:"courseId"`
	Title              string    `json:"title"`
	Destination        string    `json:"destination"`
	TotalDays          int       `json:"totalDays"`
	Theme              string    `json:"theme"`
	Summary            string    `json:"summary,omitempty"`
	DayPlans           []DayPlan `json:"dayPlans"`
	CreatedAt          time.Time `json:"createdAt"`
	EstimatedBudget    string    `json:"estimatedBudget,omitempty"`
	TransportationInfo string    `json:"transportationInfo,omitempty"`
	AccommodationInfo  string    `json:"accommodationInfo,omitempty"`
	Tips               []string  `json:"tips,omitempty"`
	WeatherInfo        string    `json:"weatherInfo,omitempty"`
}
