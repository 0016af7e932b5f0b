package models

// ParticipantRole names a functional slot in a workflow's roster.
type ParticipantRole string

const (
	RoleIssuer      ParticipantRole = "issuer"
	RoleIBAdvisor   ParticipantRole = "ib_advisor"
	RoleRegulator   ParticipantRole = "regulator"
	RoleListingDesk ParticipantRole = "listing_desk"
	RoleCSDOperator ParticipantRole = "csd_operator"
	RoleBroker      ParticipantRole = "broker"
	RoleInvestor    ParticipantRole = "investor"

	// RoleAll addresses notifications to every participant. It is never a
	// roster slot.
	RoleAll ParticipantRole = "all"
)

// IsValidSlot reports whether the role names a writable roster slot.
func (r ParticipantRole) IsValidSlot() bool {
	switch r {
	case RoleIssuer, RoleIBAdvisor, RoleRegulator, RoleListingDesk,
		RoleCSDOperator, RoleBroker, RoleInvestor:
		return true
	default:
		return false
	}
}

// IsMultiValued reports whether the role holds a list rather than one slot.
func (r ParticipantRole) IsMultiValued() bool {
	return r == RoleBroker || r == RoleInvestor
}

// Participant identifies an actor occupying a roster slot. The slot key, not
// the participant's self-reported Role field, is authoritative.
type Participant struct {
	UserID      string          `json:"user_id"     validate:"required"`
	Role        ParticipantRole `json:"role"`
	Name        string          `json:"name"        validate:"required"`
	Institution string          `json:"institution,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// ParticipantSet is the roster of one workflow. Singular roles are
// last-write-wins slots; brokers and investors are append-only lists with no
// dedup by user id.
type ParticipantSet struct {
	Issuer      *Participant   `json:"issuer,omitempty"`
	IBAdvisor   *Participant   `json:"ib_advisor,omitempty"`
	Regulator   *Participant   `json:"regulator,omitempty"`
	ListingDesk *Participant   `json:"listing_desk,omitempty"`
	CSDOperator *Participant   `json:"csd_operator,omitempty"`
	Brokers     []*Participant `json:"brokers,omitempty"`
	Investors   []*Participant `json:"investors,omitempty"`
}

// Assign writes a participant into the slot named by role. It returns false
// for roles that are not roster slots.
func (p *ParticipantSet) Assign(role ParticipantRole, participant *Participant) bool {
	switch role {
	case RoleIssuer:
		p.Issuer = participant
	case RoleIBAdvisor:
		p.IBAdvisor = participant
	case RoleRegulator:
		p.Regulator = participant
	case RoleListingDesk:
		p.ListingDesk = participant
	case RoleCSDOperator:
		p.CSDOperator = participant
	case RoleBroker:
		p.Brokers = append(p.Brokers, participant)
	case RoleInvestor:
		p.Investors = append(p.Investors, participant)
	default:
		return false
	}

	return true
}

// ByRole returns all participants occupying the given role.
func (p *ParticipantSet) ByRole(role ParticipantRole) []*Participant {
	switch role {
	case RoleIssuer:
		return singleton(p.Issuer)
	case RoleIBAdvisor:
		return singleton(p.IBAdvisor)
	case RoleRegulator:
		return singleton(p.Regulator)
	case RoleListingDesk:
		return singleton(p.ListingDesk)
	case RoleCSDOperator:
		return singleton(p.CSDOperator)
	case RoleBroker:
		return p.Brokers
	case RoleInvestor:
		return p.Investors
	default:
		return nil
	}
}

// HasUser reports whether the given user occupies the given role.
func (p *ParticipantSet) HasUser(userID string, role ParticipantRole) bool {
	for _, participant := range p.ByRole(role) {
		if participant != nil && participant.UserID == userID {
			return true
		}
	}

	return false
}

func singleton(p *Participant) []*Participant {
	if p == nil {
		return nil
	}

	return []*Participant{p}
}

func (p ParticipantSet) clone() ParticipantSet {
	out := ParticipantSet{
		Issuer:      cloneParticipant(p.Issuer),
		IBAdvisor:   cloneParticipant(p.IBAdvisor),
		Regulator:   cloneParticipant(p.Regulator),
		ListingDesk: cloneParticipant(p.ListingDesk),
		CSDOperator: cloneParticipant(p.CSDOperator),
	}

	if p.Brokers != nil {
		out.Brokers = make([]*Participant, len(p.Brokers))
		for i, broker := range p.Brokers {
			out.Brokers[i] = cloneParticipant(broker)
		}
	}

	if p.Investors != nil {
		out.Investors = make([]*Participant, len(p.Investors))
		for i, investor := range p.Investors {
			out.Investors[i] = cloneParticipant(investor)
		}
	}

	return out
}

func cloneParticipant(p *Participant) *Participant {
	if p == nil {
		return nil
	}

	clone := *p

	return &clone
}
