package valueobject

type Category string

const (
	CategoryWebDevelopment    Category = "web-development"
	CategoryMobileDevelopment Category = "mobile-development"
	CategoryUIUXDesign        Category = "ui-ux-design"
	CategoryGraphicDesign     Category = "graphic-design"
	CategoryContentWriting    Category = "content-writing"
	CategoryDigitalMarketing  Category = "digital-marketing"
	CategoryDataAnalysis      Category = "data-analysis"
	CategoryVideoEditing      Category = "video-editing"
	CategoryTranslation       Category = "translation"
	CategoryVirtualAssistant  Category = "virtual-assistant"
	CategoryOther             Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryWebDevelopment, CategoryMobileDevelopment, CategoryUIUXDesign, CategoryGraphicDesign,
		CategoryContentWriting, CategoryDigitalMarketing, CategoryDataAnalysis, CategoryVideoEditing,
		CategoryTranslation, CategoryVirtualAssistant, CategoryOther:
		return true
	}
	return false
}

type BudgetType string

const (
	BudgetTypeFixed  BudgetType = "fixed"
	BudgetTypeHourly BudgetType = "hourly"
)

func (b BudgetType) IsValid() bool {
	return b == BudgetTypeFixed || b == BudgetTypeHourly
}

type Timeline string

const (
	TimelineUrgent     Timeline = "urgent"
	TimelineOneWeek    Timeline = "1-week"
	TimelineTwoWeeks   Timeline = "2-weeks"
	TimelineOneMonth   Timeline = "1-month"
	TimelineTwoMonths  Timeline = "2-months"
	TimelineThreeMonth Timeline = "3+ months"
)

// TimelineOrder задаёт порядок сортировки по срочности.
var TimelineOrder = []Timeline{
	TimelineUrgent,
	TimelineOneWeek,
	TimelineTwoWeeks,
	TimelineOneMonth,
	TimelineTwoMonths,
	TimelineThreeMonth,
}

func (t Timeline) IsValid() bool {
	return t.Priority() >= 0
}

// Priority возвращает позицию в TimelineOrder или -1.
func (t Timeline) Priority() int {
	for i, v := range TimelineOrder {
		if v == t {
			return i
		}
	}
	return -1
}

type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

func (e ExperienceLevel) IsValid() bool {
	switch e {
	case ExperienceBeginner, ExperienceIntermediate, ExperienceExpert:
		return true
	}
	return false
}

type Location string

const (
	LocationRemote Location = "remote"
	LocationOnSite Location = "on-site"
	LocationHybrid Location = "hybrid"
)

func (l Location) IsValid() bool {
	switch l {
	case LocationRemote, LocationOnSite, LocationHybrid:
		return true
	}
	return false
}

type Duration string

const (
	DurationLessThanMonth Duration = "less-than-1-month"
	DurationOneToThree    Duration = "1-3-months"
	DurationThreeToSix    Duration = "3-6-months"
	DurationMoreThanSix   Duration = "more-than-6-months"
)

func (d Duration) IsValid() bool {
	switch d {
	case DurationLessThanMonth, DurationOneToThree, DurationThreeToSix, DurationMoreThanSix:
		return true
	}
	return false
}

type UserRole string

const (
	RoleClient     UserRole = "client"
	RoleFreelancer UserRole = "freelancer"
	RoleAdmin      UserRole = "admin"
)
