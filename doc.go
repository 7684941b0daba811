// Package eform fills DOCX form templates with data and renders them to PDF,
// and lets an external document editor edit the templates collaboratively.
//
// # Quick Start
//
// Build a generator pool and a service over a record store:
//
//	pool := eform.NewGeneratorPool(eform.ResolvePoolSize(0), eform.GeneratorConfig{
//	    Assets: assets.NewResolver("/srv/eform/assets"),
//	})
//	defer pool.Close()
//
//	svc, err := eform.NewService(store.NewMemory(), pool,
//	    eform.WithUploadDir("/srv/eform/uploads"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tpl, err := svc.UploadTemplate(ctx, "Contract", "contract.docx", file)
//	form, err := svc.SaveForm(ctx, store.Form{TemplateID: tpl.ID, Data: data})
//	pdf, err := svc.GeneratePDF(ctx, form.ID, nil)
//
// # Rendering Pipeline
//
// Each PDF goes through these stages:
//
//  1. Binding: {{name}} placeholders are replaced by form values (text,
//     images, tables, markdown)
//  2. Normalization: every run is set to the canonical font, size and
//     spacing; a failure here is logged and rendering continues
//  3. The bound document is written to a temporary file
//  4. Conversion: the document is laid out as HTML with embedded font faces
//     and printed by headless Chrome
//  5. The temporary file is removed, whatever the outcome
//
// # Collaborative Editing
//
// EditorConfig returns the signed session configuration for the editor.
// The editor posts save notifications to HandleCallback, which replaces the
// stored template after keeping a timestamped backup and re-extracts its
// variables. Saves of one template are serialized.
//
// # Errors
//
// Operations return *Error values carrying a Kind. Match them with
// errors.Is(err, eform.ErrNotFound) and the other kind sentinels, or read
// the kind with KindOf.
package eform
