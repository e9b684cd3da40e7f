package enums

import "fmt"

// ProjectCategory is the listing category a project is browsed under.
type ProjectCategory string

const (
	ProjectCategoryWebApp        ProjectCategory = "WEB_APP"
	ProjectCategoryMobileApp     ProjectCategory = "MOBILE_APP"
	ProjectCategoryAPIBackend    ProjectCategory = "API_BACKEND"
	ProjectCategoryUIUXDesign    ProjectCategory = "UI_UX_DESIGN"
	ProjectCategoryAIIntegration ProjectCategory = "AI_INTEGRATION"
	ProjectCategoryEcommerce     ProjectCategory = "ECOMMERCE"
	ProjectCategoryLandingPage   ProjectCategory = "LANDING_PAGE"
	ProjectCategoryDashboard     ProjectCategory = "DASHBOARD"
	ProjectCategoryOther         ProjectCategory = "OTHER"
)

var validProjectCategories = []ProjectCategory{
	ProjectCategoryWebApp,
	ProjectCategoryMobileApp,
	ProjectCategoryAPIBackend,
	ProjectCategoryUIUXDesign,
	ProjectCategoryAIIntegration,
	ProjectCategoryEcommerce,
	ProjectCategoryLandingPage,
	ProjectCategoryDashboard,
	ProjectCategoryOther,
}

// String implements fmt.Stringer.
func (c ProjectCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProjectCategory.
func (c ProjectCategory) IsValid() bool {
	for _, candidate := range validProjectCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProjectCategory converts raw input into a ProjectCategory.
func ParseProjectCategory(value string) (ProjectCategory, error) {
	for _, candidate := range validProjectCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid project category %q", value)
}
