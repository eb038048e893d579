package models

import (
	"fmt"

	"gorm.io/gorm"
)

// OwnerKind names the kind of row a media item is attached to.
type OwnerKind string

const (
	OwnerUser          OwnerKind = "user"
	OwnerCompany       OwnerKind = "company"
	OwnerProduct       OwnerKind = "product"
	OwnerCompanyClient OwnerKind = "company_client"
	OwnerProposal      OwnerKind = "sourcing_proposal"
)

func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerUser, OwnerCompany, OwnerProduct, OwnerCompanyClient, OwnerProposal:
		return true
	}
	return false
}

type Collection string

const (
	CollectionProfilePicture Collection = "profile_picture"
	CollectionCompanyLogo    Collection = "profile_pic"
	CollectionImage          Collection = "image"
	CollectionProposalImages Collection = "proposal_images"
)

// MediaOwner is implemented by every model that can carry attachments.
type MediaOwner interface {
	MediaOwner() (OwnerKind, string)
}

type Media struct {
	Base
	OwnerKind  OwnerKind  `gorm:"not null;index:idx_media_owner" json:"owner_kind"`
	OwnerID    string     `gorm:"type:uuid;not null;index:idx_media_owner" json:"owner_id"`
	Collection Collection `gorm:"not null" json:"collection"`
	FileName   string     `gorm:"not null" json:"file_name"`
	Path       string     `gorm:"not null" json:"-"`
	MimeType   string     `gorm:"not null" json:"mime_type"`
	Size       int64      `gorm:"not null" json:"size"`
	URL        string     `gorm:"-" json:"url"`
}

func (m *Media) BeforeSave(tx *gorm.DB) error {
	if !m.OwnerKind.Valid() {
		return fmt.Errorf("unknown media owner kind %q", m.OwnerKind)
	}
	return nil
}

func (m *Media) AfterFind(tx *gorm.DB) error {
	url, err := ResolveMediaURL(tx.Statement.Context, m.Path)
	if err != nil {
		return fmt.Errorf("failed to generate signed URL: %w", err)
	}
	m.URL = url
	return nil
}
