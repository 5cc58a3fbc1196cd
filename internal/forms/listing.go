package forms

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/petermazzocco/bboard/models"
)

const (
	MaxAdditionalImages = 10
	MaxImageBytes       = 5 << 20
)

type ListingForm struct {
	RubricID   uint
	Title      string
	Content    string
	Price      float64
	Contacts   string
	IsActive   bool
	ClearImage bool
	Image      *Upload
}

// ParseListing binds a listing form. current is the listing being edited, nil
// when creating; absent fields fall back to it or to the creation defaults.
func ParseListing(values url.Values, image *Upload, current *models.Listing) (ListingForm, Errors) {
	errs := Errors{}
	f := ListingForm{
		Title:    strings.TrimSpace(values.Get("title")),
		Content:  strings.TrimSpace(values.Get("content")),
		Contacts: strings.TrimSpace(values.Get("contacts")),
		Image:    image,
		IsActive: true,
	}
	if current != nil {
		f.IsActive = current.IsActive
	}

	if required(errs, "rubric", values.Get("rubric")) {
		id, err := parseID(values.Get("rubric"))
		if err != nil {
			errs.Add("rubric", "Select a valid choice.")
		}
		f.RubricID = id
	}
	if required(errs, "title", f.Title) {
		maxLength(errs, "title", f.Title, 40)
		singleLine(errs, "title", f.Title)
	}
	required(errs, "content", f.Content)
	required(errs, "contacts", f.Contacts)

	if raw := strings.TrimSpace(values.Get("price")); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil || math.IsNaN(price) || math.IsInf(price, 0):
			errs.Add("price", "Enter a number.")
		case price < 0:
			errs.Add("price", "Ensure this value is greater than or equal to 0.")
		default:
			f.Price = price
		}
	}

	active, err := ParseBool(values, "is_active", f.IsActive)
	if err != nil {
		errs.Add("is_active", "Enter a valid boolean.")
	}
	f.IsActive = active

	if current != nil {
		clearImage, err := ParseBool(values, "clear_image", false)
		if err != nil {
			errs.Add("clear_image", "Enter a valid boolean.")
		}
		f.ClearImage = clearImage
	}
	if image != nil {
		if err := image.Validate(); err != nil {
			errs.Add("image", "%s", err)
		}
		if f.ClearImage {
			errs.Add("image", "Please either submit a file or check the clear checkbox, not both.")
		}
	}
	return f, errs
}

// Apply copies the form onto l. Image keys are handled by the caller.
func (f ListingForm) Apply(l *models.Listing) {
	l.RubricID = f.RubricID
	l.Title = f.Title
	l.Content = f.Content
	l.Price = f.Price
	l.Contacts = f.Contacts
	l.IsActive = f.IsActive
}

// Upload is a submitted file, fully read.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func NewUpload(filename string, data []byte) *Upload {
	return &Upload{Filename: filename, ContentType: http.DetectContentType(data), Data: data}
}

func (u *Upload) Validate() error {
	switch {
	case len(u.Data) == 0:
		return errors.New("The submitted file is empty.")
	case len(u.Data) > MaxImageBytes:
		return fmt.Errorf("The submitted file is larger than %d bytes.", MaxImageBytes)
	case !strings.HasPrefix(u.ContentType, "image/"):
		return errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}
	return nil
}

// ImageSet is the additional-image sub-form collection submitted together
// with a listing: new files to attach and ids of attached images to remove.
type ImageSet struct {
	New    []*Upload
	Delete []uint
}

func ParseImageSet(values url.Values, uploads []*Upload) (ImageSet, Errors) {
	errs := Errors{}
	set := ImageSet{New: uploads}
	for _, raw := range values["delete_image"] {
		id, err := parseID(raw)
		if err != nil {
			errs.Add("delete_image", "Select a valid choice. %s is not one of the available choices.", raw)
			continue
		}
		set.Delete = append(set.Delete, id)
	}
	for i, u := range uploads {
		if err := u.Validate(); err != nil {
			errs.Add(fmt.Sprintf("images.%d", i), "%s", err)
		}
	}
	return set, errs
}

// Check validates the set against the images already attached to the
// listing: deletions must refer to them and the result must stay bounded.
func (s ImageSet) Check(existing []models.AdditionalImage) Errors {
	errs := Errors{}
	attached := make(map[uint]bool, len(existing))
	for _, img := range existing {
		attached[img.ID] = true
	}
	removed := map[uint]bool{}
	for _, id := range s.Delete {
		if !attached[id] {
			errs.Add("delete_image", "Select a valid choice. %d is not one of the available choices.", id)
			continue
		}
		removed[id] = true
	}
	if n := len(existing) - len(removed) + len(s.New); n > MaxAdditionalImages {
		errs.Add("images", "Please submit at most %d images.", MaxAdditionalImages)
	}
	return errs
}
