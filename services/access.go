package services

import "bankcards/models"

// Principal аутентифицированный пользователь, выполняющий операцию
type Principal struct {
	ID   uint
	Role models.Role
}

type capabilityKind uint8

const (
	capabilityOwner capabilityKind = iota
	capabilityAdmin
)

// Capability право доступа к картам: Admin или OwnerOf(id)
type Capability struct {
	kind    capabilityKind
	ownerID uint
}

// AdminCapability доступ ко всем картам
func AdminCapability() Capability {
	return Capability{kind: capabilityAdmin}
}

// OwnerOf доступ только к картам указанного пользователя
func OwnerOf(userID uint) Capability {
	return Capability{kind: capabilityOwner, ownerID: userID}
}

// IsAdmin сообщает, дает ли право доступ ко всем картам
func (c Capability) IsAdmin() bool {
	return c.kind == capabilityAdmin
}

// Permits проверяет право на конкретную карту
func (c Capability) Permits(card *models.Card) bool {
	if card == nil {
		return false
	}
	if c.kind == capabilityAdmin {
		return true
	}
	return card.IsOwnedBy(c.ownerID)
}

// Capability выводит право доступа из роли
func (p Principal) Capability() Capability {
	if p.Role == models.RoleAdmin {
		return AdminCapability()
	}
	return OwnerOf(p.ID)
}

func (p Principal) IsAdmin() bool {
	return p.Capability().IsAdmin()
}

// CanAccess решает, может ли principal читать или изменять карту
func CanAccess(principal Principal, card *models.Card) bool {
	return principal.Capability().Permits(card)
}
