package domain

type Theme string

const (
	ThemeLight   Theme = "light"
	ThemeDark    Theme = "dark"
	DefaultTheme       = ThemeLight
)

func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}
