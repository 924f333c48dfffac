package domain

// Global channels carry events visible to every authenticated user.
// Project channels are derived from the project id and carry that
// project's ticket, label, sprint, comment and member events.
const (
	ChannelProjects = "projects"
	ChannelUsers    = "users"
	ChannelMembers  = "members"
	ChannelBranding = "branding"
	ChannelSettings = "settings"
)

const projectChannelPrefix = "project:"

// ProjectChannel returns the bus channel name for one project.
func ProjectChannel(projectID string) string {
	return projectChannelPrefix + projectID
}

// IsGlobalChannel reports whether name is one of the fixed global channels.
func IsGlobalChannel(name string) bool {
	switch name {
	case ChannelProjects, ChannelUsers, ChannelMembers, ChannelBranding, ChannelSettings:
		return true
	}
	return false
}
