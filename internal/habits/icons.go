package habits

// Icon names a glyph the client renders for a habit.
type Icon string

const (
	IconTarget   Icon = "target"
	IconFlame    Icon = "flame"
	IconStar     Icon = "star"
	IconHeart    Icon = "heart"
	IconZap      Icon = "zap"
	IconBook     Icon = "book"
	IconDumbbell Icon = "dumbbell"
	IconCoffee   Icon = "coffee"
	IconBrain    Icon = "brain"
	IconMoon     Icon = "moon"
	IconSun      Icon = "sun"
	IconMusic    Icon = "music"
	IconCamera   Icon = "camera"
	IconPalette  Icon = "palette"
	IconDroplet  Icon = "droplet"
	IconWind     Icon = "wind"
)

// DefaultIcon is used when a habit is created without one.
const DefaultIcon = IconTarget

// Icons lists every supported icon in display order.
var Icons = []Icon{
	IconTarget, IconFlame, IconStar, IconHeart,
	IconZap, IconBook, IconDumbbell, IconCoffee,
	IconBrain, IconMoon, IconSun, IconMusic,
	IconCamera, IconPalette, IconDroplet, IconWind,
}

var iconSet = func() map[Icon]bool {
	m := make(map[Icon]bool, len(Icons))
	for _, icon := range Icons {
		m[icon] = true
	}
	return m
}()

// Valid reports whether the icon is in the lookup table.
func (i Icon) Valid() bool {
	return iconSet[i]
}

// IconOrDefault returns name as an Icon when it is known, DefaultIcon otherwise.
func IconOrDefault(name string) Icon {
	if icon := Icon(name); icon.Valid() {
		return icon
	}
	return DefaultIcon
}
