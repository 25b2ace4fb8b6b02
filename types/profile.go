package types

import (
	"errors"
	"fmt"
	"strings"
)

// Profile distinguishes the two interaction profiles an account runs under.
type Profile string

const (
	// ProfilePrimary is the desktop profile.
	ProfilePrimary Profile = "primary"
	// ProfileSecondary is the mobile profile.
	ProfileSecondary Profile = "secondary"
)

// ParseProfile accepts "primary"/"desktop" and "secondary"/"mobile".
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "desktop", "pc":
		return ProfilePrimary, nil
	case "secondary", "mobile":
		return ProfileSecondary, nil
	}
	return "", fmt.Errorf("unknown profile %q", s)
}

// ProgressQuery describes where a counter pair lives. Either Composite holds
// "current/maximum" text, or Current and Maximum are read separately.
type ProgressQuery struct {
	Composite AttributeQuery `yaml:"composite,omitempty" json:"composite,omitempty"`
	Current   AttributeQuery `yaml:"current,omitempty" json:"current,omitempty"`
	Maximum   AttributeQuery `yaml:"maximum,omitempty" json:"maximum,omitempty"`
}

// IsComposite reports whether the pair is read from a single element.
func (p ProgressQuery) IsComposite() bool {
	return !p.Composite.IsZero()
}

func (p ProgressQuery) validate(name string) error {
	if p.IsComposite() {
		if err := p.Composite.Validate(); err != nil {
			return fmt.Errorf("%s.composite: %w", name, err)
		}
		return nil
	}
	var errs []error
	if err := p.Current.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%s.current: %w", name, err))
	}
	if err := p.Maximum.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%s.maximum: %w", name, err))
	}
	return errors.Join(errs...)
}

// StatsFrame is the flyout that hosts the counters on some profiles: click
// Opener, then read inside Frame.
type StatsFrame struct {
	Opener AttributeQuery `yaml:"opener" json:"opener"`
	Frame  AttributeQuery `yaml:"frame" json:"frame"`
}

// SiteProfile is the configuration record a Session is built from. Profile
// differences are data only.
type SiteProfile struct {
	Name      Profile `yaml:"name" json:"name"`
	UserAgent string  `yaml:"user_agent" json:"user_agent"`

	SignInURL    string `yaml:"sign_in_url" json:"sign_in_url"`
	DashboardURL string `yaml:"dashboard_url" json:"dashboard_url"`
	SearchURL    string `yaml:"search_url" json:"search_url"`
	OffersURL    string `yaml:"offers_url" json:"offers_url"`

	LoginField    AttributeQuery   `yaml:"login_field" json:"login_field"`
	PasswordField AttributeQuery   `yaml:"password_field" json:"password_field"`
	SignInError   AttributeQuery   `yaml:"sign_in_error" json:"sign_in_error"`
	PreForm       []AttributeQuery `yaml:"pre_form" json:"pre_form"`

	StatsFrame          *StatsFrame   `yaml:"stats_frame,omitempty" json:"stats_frame,omitempty"`
	ProgressOnDashboard bool          `yaml:"progress_on_dashboard" json:"progress_on_dashboard"`
	DeviceProgress      ProgressQuery `yaml:"device_progress" json:"device_progress"`
	OfferProgress       ProgressQuery `yaml:"offer_progress" json:"offer_progress"`

	TotalPoints            AttributeQuery `yaml:"total_points" json:"total_points"`
	TotalPointsOnDashboard bool           `yaml:"total_points_on_dashboard" json:"total_points_on_dashboard"`

	OfferLinks     AttributeQuery `yaml:"offer_links" json:"offer_links"`
	OfferLinksAttr string         `yaml:"offer_links_attr" json:"offer_links_attr"`
	OfferLinksTrim int            `yaml:"offer_links_trim" json:"offer_links_trim"`

	SearchBox AttributeQuery `yaml:"search_box" json:"search_box"`

	SignOutSteps []AttributeQuery `yaml:"sign_out_steps" json:"sign_out_steps"`
	SignOutCheck AttributeQuery   `yaml:"sign_out_check" json:"sign_out_check"`
}

// RequiresPreForm reports whether the sign-in form sits behind extra clicks.
func (p SiteProfile) RequiresPreForm() bool {
	return len(p.PreForm) > 0
}

// Validate checks the fields every Session operation depends on.
func (p SiteProfile) Validate() error {
	var errs []error
	if p.Name != ProfilePrimary && p.Name != ProfileSecondary {
		errs = append(errs, fmt.Errorf("name: unknown profile %q", p.Name))
	}
	for name, v := range map[string]string{
		"sign_in_url":   p.SignInURL,
		"dashboard_url": p.DashboardURL,
		"search_url":    p.SearchURL,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	for name, q := range map[string]AttributeQuery{
		"login_field":    p.LoginField,
		"password_field": p.PasswordField,
		"sign_in_error":  p.SignInError,
		"search_box":     p.SearchBox,
	} {
		if err := q.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := p.DeviceProgress.validate("device_progress"); err != nil {
		errs = append(errs, err)
	}
	if err := p.OfferProgress.validate("offer_progress"); err != nil {
		errs = append(errs, err)
	}
	if p.StatsFrame != nil {
		if err := p.StatsFrame.Frame.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("stats_frame.frame: %w", err))
		}
	}
	if p.OfferLinksTrim < 0 {
		errs = append(errs, errors.New("offer_links_trim must be >= 0"))
	}
	return errors.Join(errs...)
}
