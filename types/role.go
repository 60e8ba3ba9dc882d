package types

// AgentRole identifies an agent's position in the development team.
type AgentRole string

const (
	RoleProductManager AgentRole = "product_manager"
	RoleArchitect      AgentRole = "architect"
	RoleDeveloper      AgentRole = "developer"
	RoleQAEngineer     AgentRole = "qa_engineer"
	RoleTeamLead       AgentRole = "team_lead"
	RoleReviewer       AgentRole = "reviewer"
)
