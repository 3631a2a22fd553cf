package model

// AppSettings is the admin-editable branding shown by the client: app name,
// logo and theme colors.
type AppSettings struct {
	AppName        string `json:"app_name"`
	LogoURL        string `json:"logo_url"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
}
